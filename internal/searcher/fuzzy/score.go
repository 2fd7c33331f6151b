package fuzzy

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/index"
)

// RejectPenalty is charged for a consecutive pair that breaks the line
// span. Any alignment whose score reaches it is dropped from the results,
// so it also acts as the proximity cut-off.
const RejectPenalty = 1000

// Score sums, over consecutive positions, the byte gap between them or
// RejectPenalty when their line distance exceeds the span. seq must not be
// empty; a single position scores 0.
func Score(cfg Config, seq []index.Position) int {
	total := 0
	for i := 1; i < len(seq); i++ {
		if !cfg.withinSpan(seq[i-1], seq[i]) {
			total += RejectPenalty
			continue
		}
		total += seq[i].Offset - seq[i-1].Offset
	}
	return total
}

// rank scores every complete sequence, drops rejected ones and orders the
// rest by score, then file name, then offset of the first position.
func rank(cfg Config, groups map[string][][]index.Position) []Match {
	matches := make([]Match, 0)
	for file, seqs := range groups {
		for _, seq := range seqs {
			s := Score(cfg, seq)
			if s >= RejectPenalty {
				continue
			}
			matches = append(matches, Match{
				Location:  index.NewLocation(file, seq[0]),
				Score:     s,
				Positions: seq,
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		return a.Location.Pos.Offset < b.Location.Pos.Offset
	})
	return matches
}
