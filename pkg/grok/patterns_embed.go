package grok

import (
	"bufio"
	"bytes"
	"embed"
	"sort"
	"strings"
)

//go:embed patterns/*.pattern
var defaultPatternFiles embed.FS

// defaultPatternTable parses every patterns/*.pattern file into the
// concatenated, de-duplicated, alphabetically sorted (name, body) table
// described by the pattern dictionary's build-time contract. Each file
// holds "NAME BODY" lines; blank lines and lines starting with # are
// ignored. Later files win on name collisions, consistent with
// Dictionary.AddPattern's last-write-wins semantics.
func defaultPatternTable() []Entry {
	files, err := defaultPatternFiles.ReadDir("patterns")
	if err != nil {
		panic("grok: embedded pattern directory missing: " + err.Error())
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".pattern") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	byName := make(map[string]string)
	order := make([]string, 0, 256)

	for _, fname := range names {
		data, err := defaultPatternFiles.ReadFile("patterns/" + fname)
		if err != nil {
			panic("grok: reading embedded pattern file " + fname + ": " + err.Error())
		}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			name, body, ok := strings.Cut(line, " ")
			if !ok || name == "" || body == "" {
				continue
			}
			if _, exists := byName[name]; !exists {
				order = append(order, name)
			}
			byName[name] = body
		}
	}

	sort.Strings(order)
	entries := make([]Entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, Entry{Name: name, Body: byName[name]})
	}
	return entries
}
