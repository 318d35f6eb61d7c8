package grok

import (
	"github.com/grafana/regexp"
)

// Handle is a single compiled regex as seen through the backend contract:
// run it against text and get back ordered capture spans, or list the
// capture names the backend assigned.
type Handle interface {
	// Match runs the regex against text. A nil, false result means no
	// match. Otherwise the returned slice is in the same shape as
	// regexp.Regexp.FindStringSubmatchIndex: pairs of (start, end) byte
	// offsets into text, indexed by capture group, -1 for groups that did
	// not participate.
	Match(text string) ([]int, bool)

	// CaptureGroupNames lists capture group names in group-index order.
	// Index 0 is the whole match and is conventionally unnamed.
	CaptureGroupNames() []string
}

// Engine compiles flattened regex text into a Handle. Swapping the engine
// is the only thing required to retarget this package at a different regex
// backend (PCRE, Oniguruma, …); the compiler and CompiledPattern never
// touch a concrete regex type directly.
type Engine interface {
	Compile(pattern string) (Handle, error)
}

// re2Engine is the default Engine, backed by github.com/grafana/regexp -- a
// drop-in, allocation-trimmed fork of the standard library's RE2 engine.
// Like stdlib regexp it rejects backreferences and lookaround, accepts both
// the (?P<name>...) and (?<name>...) named-group spellings, and allows two
// groups to share a name (SubexpNames then lists that name once per group).
type re2Engine struct{}

func (re2Engine) Compile(pattern string) (Handle, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &re2Handle{re: re}, nil
}

type re2Handle struct {
	re *regexp.Regexp
}

func (h *re2Handle) Match(text string) ([]int, bool) {
	idx := h.re.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil, false
	}
	return idx, true
}

func (h *re2Handle) CaptureGroupNames() []string {
	return h.re.SubexpNames()
}

// DefaultEngine is the Engine used by dictionaries constructed without an
// explicit WithEngine option.
func DefaultEngine() Engine {
	return re2Engine{}
}
