package index

// FileID is a stable handle for an interned file name. Equal names always
// map to the same FileID.
type FileID uint32

// Interner deduplicates file names so every posting of a file shares one
// stored copy of its name. IDs are assigned sequentially and never reused.
type Interner struct {
	ids   map[string]FileID
	names []string
}

func NewInterner() *Interner {
	return &Interner{
		ids: make(map[string]FileID),
	}
}

// Intern returns the FileID for name, creating one on first sight.
func (in *Interner) Intern(name string) FileID {
	if id, ok := in.ids[name]; ok {
		return id
	}
	id := FileID(len(in.names))
	in.names = append(in.names, name)
	in.ids[name] = id
	return id
}

// Lookup returns the FileID for name without creating one.
func (in *Interner) Lookup(name string) (FileID, bool) {
	id, ok := in.ids[name]
	return id, ok
}

// Name resolves id back to the interned string. It panics on an id the
// interner never issued.
func (in *Interner) Name(id FileID) string {
	if int(id) >= len(in.names) {
		panic("index: FileID out of range")
	}
	return in.names[id]
}

// Len reports how many distinct names have been interned.
func (in *Interner) Len() int {
	return len(in.names)
}
