package index

import "strconv"

// Position is where a token starts: a byte offset into the file plus the
// 1-based line and column derived from it.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location is a Position inside a named file.
type Location struct {
	File string   `json:"file"`
	Pos  Position `json:"pos"`
}

func NewLocation(file string, pos Position) Location {
	return Location{File: file, Pos: pos}
}

// String renders the location as file:line:column.
func (l Location) String() string {
	return l.File + ":" + strconv.Itoa(l.Pos.Line) + ":" + strconv.Itoa(l.Pos.Column)
}

// posting is the stored form of a Location, with the file name interned.
type posting struct {
	file FileID
	pos  Position
}
