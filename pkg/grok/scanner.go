package grok

import "unicode/utf8"

// TokenKind identifies what a Token carries.
type TokenKind int

const (
	// TokenLiteral is a run of regex text with no placeholder inside it.
	TokenLiteral TokenKind = iota
	// TokenPlaceholder is a parsed %{...} reference.
	TokenPlaceholder
	// TokenError terminates the token sequence; scanning is fused after it.
	TokenError
)

// Token is one unit produced by scanning a Grok source string. When no
// TokenError is emitted, concatenating the Text of every token reproduces
// the source exactly; a TokenError carries no Text.
type Token struct {
	Kind  TokenKind
	Start int
	End   int
	Text  string

	// Populated only when Kind == TokenPlaceholder.
	Name       string
	Alias      string
	Extract    string
	Definition string

	// Populated only when Kind == TokenError.
	Err error
}

// scanErrorKind distinguishes the ways a placeholder can be malformed.
type scanErrorKind int

const (
	scanErrInvalidCharacter scanErrorKind = iota
	scanErrInvalidPattern
	scanErrInvalidPatternDefinition
)

type scanError struct {
	kind scanErrorKind
	char rune
}

func (e *scanError) Error() string {
	switch e.kind {
	case scanErrInvalidCharacter:
		return "invalid character " + string(e.char) + " in placeholder"
	case scanErrInvalidPatternDefinition:
		return "invalid or missing placeholder field"
	default:
		return "invalid or unterminated placeholder"
	}
}

// scanner is a single-pass, one-rune-lookahead tokenizer over a Grok source
// string. It is pull-based: each call to next() advances the scanner and
// returns the next token, fusing (returning ok=false forever after) once a
// TokenError has been emitted.
type scanner struct {
	src  string
	pos  int
	done bool
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) peekRune() (idx int, r rune, ok bool) {
	if s.pos >= len(s.src) {
		return 0, 0, false
	}
	r, _ = utf8.DecodeRuneInString(s.src[s.pos:])
	return s.pos, r, true
}

func (s *scanner) advance() (idx int, r rune, ok bool) {
	if s.pos >= len(s.src) {
		return 0, 0, false
	}
	idx = s.pos
	var size int
	r, size = utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	return idx, r, true
}

// next returns the following token, or ok=false once the source and any
// trailing error have both been consumed.
func (s *scanner) next() (Token, bool) {
	if s.done {
		return Token{}, false
	}
	tok, ok := s.tryNext()
	if !ok {
		s.done = true
		return Token{}, false
	}
	if tok.Kind == TokenError {
		s.done = true
	}
	return tok, true
}

func (s *scanner) tryNext() (Token, bool) {
	start, r0, ok := s.advance()
	if !ok {
		return Token{}, false
	}

	if r0 == '%' {
		_, r1, ok1 := s.advance()
		if !ok1 {
			return Token{Kind: TokenLiteral, Start: start, End: len(s.src), Text: s.src[start:]}, true
		}
		if r1 == '{' {
			return s.scanPlaceholder(start)
		}
		// Not a placeholder opener; the '%' and the following rune both
		// fall through into the literal run below.
	}

	for {
		_, r, ok := s.peekRune()
		if !ok || r == '%' {
			break
		}
		s.advance()
	}
	return Token{Kind: TokenLiteral, Start: start, End: s.pos, Text: s.src[start:s.pos]}, true
}

func (s *scanner) scanPlaceholder(start int) (Token, bool) {
	var comps [3]string
	compIndex := 0

	for {
		term, word, err := s.munchWord(compIndex > 0)
		if err != nil {
			return s.errToken(start, err), true
		}
		if compIndex == 3 {
			return s.errToken(start, &scanError{kind: scanErrInvalidPattern}), true
		}
		comps[compIndex] = word

		termIdx, _, ok := s.advance() // consume the terminator rune itself
		if !ok {
			return s.errToken(start, &scanError{kind: scanErrInvalidPattern}), true
		}
		compIndex++

		if compIndex == 3 && comps[2] == "" {
			return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
		}

		switch term {
		case '}':
			if compIndex == 2 && comps[1] == "" {
				return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
			}
			end := termIdx + 1
			return Token{
				Kind: TokenPlaceholder, Start: start, End: end, Text: s.src[start:end],
				Name: comps[0], Alias: comps[1], Extract: comps[2],
			}, true
		case '=':
			if compIndex == 2 && comps[1] == "" {
				return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
			}
			defStart := termIdx + 1
			for {
				idx, r, ok := s.advance()
				if !ok {
					return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
				}
				if r == '{' {
					return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
				}
				if r == '}' {
					definition := s.src[defStart:idx]
					if definition == "" {
						return s.errToken(start, &scanError{kind: scanErrInvalidPatternDefinition}), true
					}
					end := idx + 1
					return Token{
						Kind: TokenPlaceholder, Start: start, End: end, Text: s.src[start:end],
						Name: comps[0], Alias: comps[1], Extract: comps[2], Definition: definition,
					}, true
				}
			}
		default: // ':' -- loop for the next word
		}
	}
}

func (s *scanner) errToken(start int, err error) Token {
	return Token{Kind: TokenError, Start: start, End: s.pos, Err: err}
}

// munchWord reads one colon/terminator-delimited word starting at the
// current position without consuming the terminator rune. isAliasOrExtract
// widens the accepted character class to include - [ ] . and allows an
// empty word.
func (s *scanner) munchWord(isAliasOrExtract bool) (terminator rune, word string, err error) {
	start, _, ok := s.peekRune()
	if !ok {
		return 0, "", &scanError{kind: scanErrInvalidPattern}
	}
	end := start

	for {
		idx, r, ok := s.peekRune()
		if !ok {
			return 0, "", &scanError{kind: scanErrInvalidPattern}
		}
		if r == '}' || r == '=' || r == ':' {
			terminator = r
			end = idx
			break
		}
		if !isWordChar(r, isAliasOrExtract) {
			return 0, "", &scanError{kind: scanErrInvalidCharacter, char: r}
		}
		s.advance()
	}

	if end == start && !isAliasOrExtract {
		return 0, "", &scanError{kind: scanErrInvalidPattern}
	}
	return terminator, s.src[start:end], nil
}

func isWordChar(r rune, wide bool) bool {
	if isASCIIAlnum(r) || r == '_' {
		return true
	}
	if wide {
		switch r {
		case '-', '[', ']', '.':
			return true
		}
	}
	return false
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
