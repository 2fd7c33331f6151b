// Package tokenizer splits text into word tokens for the index. A token is a
// maximal run of Unicode letters, marks, digits and connector punctuation
// such as '_'; newlines only advance the line counter and are never emitted.
// Offsets and columns count bytes.
package tokenizer

import (
	"iter"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/index"
)

const pattern = `[\p{L}\p{M}\p{N}\p{Pc}]+|\n`

// Lexer is safe for concurrent use; it holds only the compiled pattern.
type Lexer struct {
	re *regexp.Regexp
}

func New() *Lexer {
	return &Lexer{re: regexp.MustCompile(pattern)}
}

// Lex yields every token of text with its position. The sequence is lazy
// and restartable: each range over it scans text from the beginning.
func (l *Lexer) Lex(text string) iter.Seq2[string, index.Position] {
	return func(yield func(string, index.Position) bool) {
		line := 1
		lineStart := 0
		rest := text
		base := 0
		for {
			loc := l.re.FindStringIndex(rest)
			if loc == nil {
				return
			}
			start, end := base+loc[0], base+loc[1]
			base = end
			rest = text[end:]
			if text[start] == '\n' {
				line++
				lineStart = end
				continue
			}
			p := index.Position{
				Offset: start,
				Line:   line,
				Column: start - lineStart + 1,
			}
			if !yield(text[start:end], p) {
				return
			}
		}
	}
}

// Locate is Lex with every position attached to file, ready for
// index.ReverseIndex.AddItems.
func (l *Lexer) Locate(file, text string) iter.Seq2[string, index.Location] {
	return func(yield func(string, index.Location) bool) {
		for token, p := range l.Lex(text) {
			if !yield(token, index.NewLocation(file, p)) {
				return
			}
		}
	}
}

// Tokens returns the token texts of text in order.
func (l *Lexer) Tokens(text string) []string {
	var tokens []string
	for token := range l.Lex(text) {
		tokens = append(tokens, token)
	}
	return tokens
}
