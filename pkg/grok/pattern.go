package grok

import (
	"iter"
	"sort"
)

// CompiledPattern wraps a backend-compiled regex together with the mapping
// from its capture groups to user-facing field names. It is immutable after
// construction and safe to share across goroutines for concurrent matching,
// bounded only by the backend engine's own thread-safety guarantees.
type CompiledPattern struct {
	handle  Handle
	order   []string       // user-facing keys, sorted lexicographically
	byKey   map[string]int // user-facing key -> backend capture group index
	extract map[string]string
	source  string // flattened regex text, retained for diagnostics
}

func newCompiledPattern(engine Engine, flat string, syntheticToUser, extractTable map[string]string) (*CompiledPattern, error) {
	backendSyntax := toBackendSyntax(flat)
	handle, err := engine.Compile(backendSyntax)
	if err != nil {
		return nil, errRegexCompilationFailed(err.Error())
	}

	byKey := make(map[string]int)
	names := handle.CaptureGroupNames()
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		key := name
		if mapped, ok := syntheticToUser[name]; ok {
			key = mapped
		}
		// Ascending index order means a later write always carries the
		// larger index, preserving "last occurrence wins" for ad-hoc
		// user-authored duplicate names the compiler never renamed.
		byKey[key] = i
	}

	order := make([]string, 0, len(byKey))
	for key := range byKey {
		order = append(order, key)
	}
	sort.Strings(order)

	extract := make(map[string]string, len(extractTable))
	for key, tag := range extractTable {
		if _, ok := byKey[key]; ok {
			extract[key] = tag
		}
	}

	return &CompiledPattern{
		handle:  handle,
		order:   order,
		byKey:   byKey,
		extract: extract,
		source:  flat,
	}, nil
}

// MatchAgainst runs the compiled regex against text. It returns (nil, false)
// if the pattern does not match; a non-match is never an error. The
// returned MatchResult borrows text and must not outlive it.
func (p *CompiledPattern) MatchAgainst(text string) (*MatchResult, bool) {
	spans, ok := p.handle.Match(text)
	if !ok {
		return nil, false
	}
	return &MatchResult{pattern: p, text: text, spans: spans}, true
}

// CaptureNames returns every user-facing key this pattern can populate, in
// the pattern's natural (lexicographic) iteration order.
func (p *CompiledPattern) CaptureNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// GetExtract returns the EXTRACT tag recorded at compile time for key, if
// any. The tag is opaque metadata; this package never interprets it.
func (p *CompiledPattern) GetExtract(key string) (string, bool) {
	tag, ok := p.extract[key]
	return tag, ok
}

// Source returns the flattened regex this pattern compiled to, useful for
// diagnostics.
func (p *CompiledPattern) Source() string {
	return p.source
}

// MatchResult borrows both its CompiledPattern and the matched text; it
// never copies character data.
type MatchResult struct {
	pattern *CompiledPattern
	text    string
	spans   []int
}

// Get returns the substring captured under key, or ("", false) if key is
// unknown or was an optional capture that did not participate in the match.
func (m *MatchResult) Get(key string) (string, bool) {
	i, ok := m.pattern.byKey[key]
	if !ok || 2*i+1 >= len(m.spans) {
		return "", false
	}
	start, end := m.spans[2*i], m.spans[2*i+1]
	if start < 0 || end < 0 {
		return "", false
	}
	return m.text[start:end], true
}

// Iter yields (key, substring) pairs in the pattern's name-table order,
// skipping groups that did not participate in the match.
func (m *MatchResult) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, key := range m.pattern.order {
			v, ok := m.Get(key)
			if !ok {
				continue
			}
			if !yield(key, v) {
				return
			}
		}
	}
}

// Collect gathers every participating capture into a map. It is the
// caller's responsibility; MatchResult itself never owns a map.
func (m *MatchResult) Collect() map[string]string {
	out := make(map[string]string, len(m.pattern.order))
	for k, v := range m.Iter() {
		out[k] = v
	}
	return out
}
