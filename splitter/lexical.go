package splitter

import "strings"

// Span is the byte range [Start, End) of one statement, terminator excluded.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

const (
	sText   = iota
	sSingle // '...'
	sDouble // "..."
	sLine   // -- ...
	sBlock  // /* ... */, nestable
	sDollar // $tag$ ... $tag$
)

// Spans returns the trimmed byte ranges of the statements in text. Fragments
// holding only whitespace or comments are dropped.
func Spans(text string) []Span {
	var (
		spans   []Span
		start   int
		state   = sText
		depth   int
		tag     string
		escapes bool
		code    bool
	)

	flush := func(end int) {
		if code {
			spans = append(spans, trim(text, start, end))
		}
		code = false
	}

	for i := 0; i < len(text); {
		c := text[i]
		next := byte(0)
		if i+1 < len(text) {
			next = text[i+1]
		}

		switch state {
		case sText:
			switch {
			case c == '-' && next == '-':
				state = sLine
				i += 2
				continue
			case c == '/' && next == '*':
				state, depth = sBlock, 1
				i += 2
				continue
			case c == '\'':
				state, code = sSingle, true
				escapes = i > 0 && (text[i-1] == 'e' || text[i-1] == 'E') && (i < 2 || !isIdent(text[i-2]))
			case c == '"':
				state, code = sDouble, true
			case c == '$':
				if t, ok := readDollarTag(text[i:]); ok {
					state, tag, code = sDollar, t, true
					i += len(t)
					continue
				}
				code = true
			case c == ';':
				flush(i)
				start = i + 1
			case !isSpace(c):
				code = true
			}
			i++

		case sSingle:
			if escapes && c == '\\' {
				i += 2
				continue
			}
			if c == '\'' && next == '\'' {
				i += 2
				continue
			}
			if c == '\'' {
				state = sText
			}
			i++

		case sDouble:
			if c == '"' {
				state = sText
			}
			i++

		case sLine:
			if c == '\n' {
				state = sText
			}
			i++

		case sBlock:
			switch {
			case c == '/' && next == '*':
				depth++
				i += 2
			case c == '*' && next == '/':
				depth--
				if depth == 0 {
					state = sText
				}
				i += 2
			default:
				i++
			}

		case sDollar:
			if strings.HasPrefix(text[i:], tag) {
				state = sText
				i += len(tag)
				continue
			}
			i++
		}
	}
	flush(len(text))
	return spans
}

// readDollarTag detects a dollar-quote opening tag ("$$" or "$tag$") at the
// start of s. "$1" style parameters are not tags.
func readDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	if s[1] >= '0' && s[1] <= '9' {
		return "", false
	}
	j := 1
	for j < len(s) && isIdent(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '$' {
		return s[:j+1], true
	}
	return "", false
}

func trim(text string, start, end int) Span {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return Span{Start: start, End: end}
}

func isIdent(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
