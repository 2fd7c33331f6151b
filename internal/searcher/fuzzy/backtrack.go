package fuzzy

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/index"
)

const unreachable = math.MaxInt

// alignBacktrack finds, for every occurrence of the first token, the
// cheapest in-order alignment of the whole query within the same file.
// Pairs that break the line span are never chosen.
func alignBacktrack(cfg Config, src Source, query []string) map[string][][]index.Position {
	occ := make([]map[string][]index.Position, len(query))
	for k, token := range query {
		occ[k] = make(map[string][]index.Position)
		for loc := range src.Query(token) {
			occ[k][loc.File] = append(occ[k][loc.File], loc.Pos)
		}
	}
	groups := make(map[string][][]index.Position)
	for file := range occ[0] {
		lists := make([][]index.Position, len(query))
		for k := range occ {
			lists[k] = occ[k][file]
		}
		if seqs := alignFile(cfg, lists); len(seqs) > 0 {
			groups[file] = seqs
		}
	}
	return groups
}

// alignFile runs a backwards dynamic programme over the per-token
// occurrence lists of one file. cost[k][i] is the cheapest total offset gap
// from lists[k][i] to the end of the query; next[k][i] is the chosen
// occurrence of token k+1. Ties keep the earliest occurrence in index order.
func alignFile(cfg Config, lists [][]index.Position) [][]index.Position {
	n := len(lists)
	for _, l := range lists {
		if len(l) == 0 {
			return nil
		}
	}
	cost := make([][]int, n)
	next := make([][]int, n)
	cost[n-1] = make([]int, len(lists[n-1]))
	for k := n - 2; k >= 0; k-- {
		cost[k] = make([]int, len(lists[k]))
		next[k] = make([]int, len(lists[k]))
		for i, p := range lists[k] {
			cost[k][i], next[k][i] = unreachable, -1
			for j, o := range lists[k+1] {
				if cost[k+1][j] == unreachable || o.Offset <= p.Offset || !cfg.withinSpan(p, o) {
					continue
				}
				if c := o.Offset - p.Offset + cost[k+1][j]; c < cost[k][i] {
					cost[k][i], next[k][i] = c, j
				}
			}
		}
	}

	var seqs [][]index.Position
	for i := range lists[0] {
		if cost[0][i] == unreachable {
			continue
		}
		seq := make([]index.Position, 0, n)
		j := i
		for k := 0; k < n; k++ {
			seq = append(seq, lists[k][j])
			if k < n-1 {
				j = next[k][j]
			}
		}
		seqs = append(seqs, seq)
	}
	return seqs
}
