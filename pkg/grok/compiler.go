package grok

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxRecursion bounds the depth of the explicit expansion stack. A Grok
// source whose placeholder nesting exceeds this fails with RecursionTooDeep
// instead of risking unbounded work on an adversarial or cyclic dictionary.
const MaxRecursion = 1024

// overrideScope is one lexical layer of NAME=DEFINITION overrides introduced
// by inline placeholder definitions. Lookups walk up through parent scopes;
// a definition is visible to the subtree it was introduced in and to later
// siblings processed by the same frame, but never leaks back out past the
// frame that defined it.
type overrideScope struct {
	parent *overrideScope
	defs   map[string]string
}

func (o *overrideScope) lookup(name string) (string, bool) {
	for s := o; s != nil; s = s.parent {
		if d, ok := s.defs[name]; ok {
			return d, true
		}
	}
	return "", false
}

func (o *overrideScope) define(name, body string) {
	if o.defs == nil {
		o.defs = make(map[string]string)
	}
	o.defs[name] = body
}

// frame is one entry of the explicit expansion stack: an in-progress scan
// over a single Grok body plus the override scope visible to it.
type frame struct {
	iter  *scanner
	scope *overrideScope
}

// compile expands source against dict into a flat regex, then hands it to
// dict's engine to produce a CompiledPattern. aliasOnly, when true, drops
// unaliased placeholders from the output map entirely (they still
// contribute a non-capturing group to the regex).
func compile(dict *Dictionary, source string, aliasOnly bool) (*CompiledPattern, error) {
	var out strings.Builder
	syntheticToUser := make(map[string]string)
	extractTable := make(map[string]string)
	dupCount := make(map[string]int)
	index := 0

	stack := []*frame{{iter: newScanner(source), scope: &overrideScope{}}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		tok, ok := top.iter.next()
		if !ok {
			stack = stack[:len(stack)-1]
			out.WriteByte(')')
		} else {
			switch tok.Kind {
			case TokenLiteral:
				out.WriteString(tok.Text)
			case TokenPlaceholder:
				body, err := resolveBody(dict, top.scope, tok)
				if err != nil {
					return nil, err
				}
				if tok.Definition != "" {
					top.scope.define(tok.Name, tok.Definition)
				}

				if aliasOnly && tok.Alias == "" {
					out.WriteString("(?:")
				} else {
					synthetic := fmt.Sprintf("_n_%d", index)
					index++

					rawKey := tok.Alias
					if rawKey == "" {
						rawKey = tok.Name
					}
					count := dupCount[rawKey]
					resolvedKey := rawKey
					if count > 0 {
						resolvedKey = fmt.Sprintf("%s[%d]", rawKey, count)
					}
					dupCount[rawKey] = count + 1

					syntheticToUser[synthetic] = resolvedKey
					if tok.Extract != "" {
						extractTable[resolvedKey] = tok.Extract
					}

					out.WriteString("(?<")
					out.WriteString(synthetic)
					out.WriteByte('>')
				}

				stack = append(stack, &frame{
					iter:  newScanner(body),
					scope: &overrideScope{parent: top.scope},
				})
			case TokenError:
				return nil, errGenericCompilationFailure(tok.Err.Error())
			}
		}

		if len(stack) > MaxRecursion {
			return nil, errRecursionTooDeep()
		}
	}

	flat := out.String()
	if len(flat) > 0 {
		flat = flat[:len(flat)-1] // trim the imaginary outer frame's ')'
	}
	if flat == "" {
		return nil, errCompiledPatternIsEmpty(source)
	}

	flat = dedupeAdHocGroupNames(flat, syntheticToUser)

	return newCompiledPattern(dict.engine, flat, syntheticToUser, extractTable)
}

// syntheticName recognizes the compiler's own generated group names, which
// are already unique by construction and must never be touched here.
var syntheticName = regexp.MustCompile(`^_n_\d+$`)

// dedupeAdHocGroupNames rewrites repeated occurrences of the same
// user-authored `(?<name>...)` group into distinct internal names so the
// flattened regex also satisfies backends that reject two groups sharing one
// name within a pattern. It records each
// renamed occurrence's original key in syntheticToUser so the adapter still
// resolves it to the user-facing name, with later (larger-index)
// occurrences overwriting earlier ones in CompiledPattern's byKey map --
// preserving the "last occurrence wins" rule spec.md requires for ad-hoc
// duplicates, even though the backend now sees unique names.
func dedupeAdHocGroupNames(flat string, syntheticToUser map[string]string) string {
	locs := namedGroupOpener.FindAllStringSubmatchIndex(flat, -1)
	if len(locs) == 0 {
		return flat
	}

	seen := make(map[string]int)
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		nameStart, nameEnd := loc[2], loc[3]
		name := flat[nameStart:nameEnd]
		if syntheticName.MatchString(name) {
			continue
		}
		count := seen[name]
		seen[name] = count + 1
		if count == 0 {
			continue // first occurrence keeps its original name
		}
		internal := fmt.Sprintf("%s_adhoc%d", name, count)
		syntheticToUser[internal] = name
		b.WriteString(flat[prev:nameStart])
		b.WriteString(internal)
		prev = nameEnd
	}
	b.WriteString(flat[prev:])
	return b.String()
}

func resolveBody(dict *Dictionary, scope *overrideScope, tok Token) (string, error) {
	if tok.Definition != "" {
		return tok.Definition, nil
	}
	if def, ok := scope.lookup(tok.Name); ok {
		return def, nil
	}
	if body, ok := dict.Lookup(tok.Name); ok {
		return body, nil
	}
	return "", errDefinitionNotFound(tok.Name)
}

// namedGroupOpener matches a Perl-style named capture group opener, the
// syntax this compiler always emits for synthetic groups and that users are
// expected to write for ad-hoc captures. toBackendSyntax rewrites it to the
// (?P<name>...) spelling before the flat regex reaches the engine, so a
// backend that only understands that spelling needs no backend-specific
// regex from callers.
var namedGroupOpener = regexp.MustCompile(`\(\?<([A-Za-z_][A-Za-z0-9_]*)>`)

func toBackendSyntax(flat string) string {
	return namedGroupOpener.ReplaceAllString(flat, "(?P<$1>")
}
