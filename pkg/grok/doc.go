// Package grok compiles Grok patterns -- regular expressions decorated with
// named %{PATTERN:field} placeholders -- into a single flat regex plus the
// bookkeeping needed to recover user-facing field names from the underlying
// capture groups.
//
// A Dictionary holds the named pattern bodies a Grok source can reference.
// Compiling a source against a Dictionary walks every placeholder
// recursively, expanding it into the dictionary body it names, and produces
// a CompiledPattern that can be matched against log lines.
package grok
