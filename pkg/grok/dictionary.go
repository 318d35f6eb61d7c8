package grok

import "sort"

// Entry is one name/body pair as stored in a Dictionary.
type Entry struct {
	Name string
	Body string
}

// Dictionary is an ordered, name-keyed mapping from pattern names to their
// Grok source bodies, consulted during compilation. It is the factory that
// produces CompiledPatterns; it is not safe for concurrent mutation, so
// callers must finish every AddPattern call before publishing a Dictionary
// for concurrent compilation use, or guard it externally.
type Dictionary struct {
	patterns map[string]string
	engine   Engine
}

// Option configures a Dictionary at construction time.
type Option func(*Dictionary)

// WithEngine selects the regex backend a Dictionary's compiled patterns
// target. Engine selection is a build-time decision; DefaultEngine() is
// used when this option is omitted.
func WithEngine(e Engine) Option {
	return func(d *Dictionary) { d.engine = e }
}

// Empty returns a Dictionary with no patterns registered.
func Empty(opts ...Option) *Dictionary {
	d := &Dictionary{patterns: make(map[string]string), engine: DefaultEngine()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithDefaultPatterns returns a Dictionary preloaded with the built-in
// pattern corpus embedded from pkg/grok/patterns.
func WithDefaultPatterns(opts ...Option) *Dictionary {
	d := Empty(opts...)
	for _, e := range defaultPatternTable() {
		d.AddPattern(e.Name, e.Body)
	}
	return d
}

// AddPattern inserts or replaces the body registered under name.
// Last-write-wins: calling it twice with the same name discards the
// earlier body.
func (d *Dictionary) AddPattern(name, body string) {
	d.patterns[name] = body
}

// Lookup returns the body registered under name, if any.
func (d *Dictionary) Lookup(name string) (string, bool) {
	body, ok := d.patterns[name]
	return body, ok
}

// Iter returns every registered entry, sorted by name for deterministic
// diagnostics and bulk-compilation tests.
func (d *Dictionary) Iter() []Entry {
	entries := make([]Entry, 0, len(d.patterns))
	for name, body := range d.patterns {
		entries = append(entries, Entry{Name: name, Body: body})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Compile expands source against d into a flat regex and hands it to d's
// engine, producing a ready-to-match CompiledPattern. aliasOnly, when true,
// hides placeholders with an empty ALIAS from the resulting field map;
// otherwise every placeholder becomes a user-visible field, defaulting to
// its NAME when no ALIAS was given.
func (d *Dictionary) Compile(source string, aliasOnly bool) (*CompiledPattern, error) {
	return compile(d, source, aliasOnly)
}
