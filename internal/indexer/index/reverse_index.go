// Package index holds the inverted index: for every token, the ordered list
// of places it occurred. Entries are append-only and kept in insertion
// order; duplicate (token, location) pairs are stored as given.
//
// A ReverseIndex is not safe for concurrent mutation. Callers that share
// one across goroutines must finish writing before reading, or serialise
// writers against readers (see indexer.Engine).
package index

import "iter"

type ReverseIndex struct {
	interner    *Interner
	items       map[string][]posting
	occurrences int
}

func NewReverseIndex() *ReverseIndex {
	return &ReverseIndex{
		interner: NewInterner(),
		items:    make(map[string][]posting),
	}
}

// AddItem appends loc to the entry for token. There is no duplicate check:
// adding the same pair twice makes Query return it twice.
func (r *ReverseIndex) AddItem(token string, loc Location) {
	r.items[token] = append(r.items[token], posting{
		file: r.interner.Intern(loc.File),
		pos:  loc.Pos,
	})
	r.occurrences++
}

// AddItems calls AddItem for every pair in sequence order.
func (r *ReverseIndex) AddItems(items iter.Seq2[string, Location]) {
	for token, loc := range items {
		r.AddItem(token, loc)
	}
}

// Query yields every stored location of token in insertion order. A token
// that was never indexed yields nothing.
func (r *ReverseIndex) Query(token string) iter.Seq[Location] {
	return func(yield func(Location) bool) {
		for _, p := range r.items[token] {
			if !yield(Location{File: r.interner.Name(p.file), Pos: p.pos}) {
				return
			}
		}
	}
}

// Count returns the number of stored occurrences of token.
func (r *ReverseIndex) Count(token string) int {
	return len(r.items[token])
}

// Terms returns the number of distinct tokens.
func (r *ReverseIndex) Terms() int {
	return len(r.items)
}

// Occurrences returns the total number of stored postings.
func (r *ReverseIndex) Occurrences() int {
	return r.occurrences
}

// Files returns every file name seen so far, in first-seen order.
func (r *ReverseIndex) Files() []string {
	files := make([]string, r.interner.Len())
	for i := range files {
		files[i] = r.interner.Name(FileID(i))
	}
	return files
}
