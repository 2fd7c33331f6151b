// Package fuzzy finds places where a sequence of query tokens occurs in
// order, close together, inside one file, and ranks them by how tightly
// packed they are.
//
// The default alignment is greedy: each partial match is extended by the
// first later occurrence of the next token and never revisited. Setting
// Config.Backtrack switches to an exhaustive per-file alignment that finds
// the cheapest continuation for every starting occurrence.
package fuzzy

import (
	"iter"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/index"
)

// Source is the read side of an inverted index.
type Source interface {
	Query(token string) iter.Seq[index.Location]
}

// Config controls matching. A nil LineSpan places no limit on the line
// distance between consecutive matched tokens; 0 keeps them on one line.
type Config struct {
	LineSpan  *int `yaml:"lineSpan" json:"line_span,omitempty"`
	Backtrack bool `yaml:"backtrack" json:"backtrack"`
}

// Span is a convenience for building a Config.LineSpan.
func Span(n int) *int {
	return &n
}

func (c Config) withinSpan(a, b index.Position) bool {
	return c.LineSpan == nil || b.Line-a.Line <= *c.LineSpan
}

// Match is one ranked hit: the location of the first query token, the
// score of the whole alignment and every matched position.
type Match struct {
	Location  index.Location   `json:"location"`
	Score     int              `json:"score"`
	Positions []index.Position `json:"positions"`
}

// Find returns the ranked locations for query, best first.
func Find(cfg Config, src Source, query []string) []index.Location {
	matches := Rank(cfg, src, query)
	locs := make([]index.Location, len(matches))
	for i, m := range matches {
		locs[i] = m.Location
	}
	return locs
}

// Rank aligns query against src and returns every surviving match, best
// first. An empty query yields no matches.
func Rank(cfg Config, src Source, query []string) []Match {
	if len(query) == 0 {
		return nil
	}
	var groups map[string][][]index.Position
	if cfg.Backtrack {
		groups = alignBacktrack(cfg, src, query)
	} else {
		groups = alignGreedy(src, query)
	}
	return rank(cfg, groups)
}

// alignGreedy seeds one sequence per occurrence of the first token and then,
// one round per remaining token, appends to each sequence the first
// occurrence (in index order) that lies strictly after its last position.
// Sequences that could not be extended in a round are dropped.
func alignGreedy(src Source, query []string) map[string][][]index.Position {
	groups := make(map[string][][]index.Position)
	for loc := range src.Query(query[0]) {
		groups[loc.File] = append(groups[loc.File], []index.Position{loc.Pos})
	}
	for i, token := range query[1:] {
		if len(groups) == 0 {
			break
		}
		target := i + 2
		for loc := range src.Query(token) {
			seqs := groups[loc.File]
			for j, seq := range seqs {
				if len(seq) == target || loc.Pos.Offset <= seq[len(seq)-1].Offset {
					continue
				}
				seqs[j] = append(seq, loc.Pos)
			}
		}
		for file, seqs := range groups {
			kept := seqs[:0]
			for _, seq := range seqs {
				if len(seq) == target {
					kept = append(kept, seq)
				}
			}
			if len(kept) == 0 {
				delete(groups, file)
				continue
			}
			groups[file] = kept
		}
	}
	return groups
}
