package parser

import (
	"fmt"
	"sort"
	"time"

	"github.com/arashi-logworks/grokline/pkg/grok"
	"github.com/arashi-logworks/grokline/pkg/types"
)

// GrokParser parses log lines using the grok pattern-compiler core.
type GrokParser struct {
	compiled     *grok.CompiledPattern
	patternName  string
	timeFormat   string
	timeField    string
	levelField   string
	messageField string
	customFields map[string]string
}

// namedGrokPatterns maps the short names accepted by ParserConfig.GrokPattern
// to a source expression against the dictionary's pattern corpus.
var namedGrokPatterns = map[string]string{
	"syslog": "%{SYSLOGLINE}",
	"apache": "%{COMMONAPACHELOG}",
	"nginx":  `%{IPORHOST:clientip} - %{USER:ident} \[%{HTTPDATE:timestamp}\] "(?:%{WORD:verb} %{NOTSPACE:request}(?: HTTP/%{NUMBER:httpversion})?|%{DATA:rawrequest})" %{NUMBER:response} %{NUMBER:bytes} "%{DATA:referrer}" "%{DATA:agent}"`,
	"java":   "%{JAVALOG}",
	"python": `%{TIMESTAMP_ISO8601:timestamp} - %{DATA:logger} - %{LOGLEVEL:level} - %{GREEDYDATA:message}`,
	"go":     `%{TIMESTAMP_ISO8601:timestamp} %{LOGLEVEL:level} %{GREEDYDATA:message}`,
	"json":   `\{.+\}`,
}

// grokDictionary is the process-wide pattern corpus that named and custom
// patterns are compiled against. It is seeded once with the embedded default
// patterns; ad-hoc definitions inside a single %{NAME=DEFINITION} placeholder
// never leak into it, since those live in the compiler's own override scope.
var grokDictionary = grok.WithDefaultPatterns()

// NewGrokParser creates a new Grok parser.
func NewGrokParser(cfg *ParserConfig) (*GrokParser, error) {
	var source string
	var patternName string

	if cfg.GrokPattern != "" {
		var ok bool
		source, ok = namedGrokPatterns[cfg.GrokPattern]
		if !ok {
			return nil, fmt.Errorf("unknown grok pattern: %s", cfg.GrokPattern)
		}
		patternName = cfg.GrokPattern
	} else if cfg.Pattern != "" {
		source = cfg.Pattern
		patternName = "custom"
	} else {
		return nil, fmt.Errorf("grok pattern or custom pattern is required")
	}

	compiled, err := grokDictionary.Compile(source, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile grok pattern: %w", err)
	}

	return &GrokParser{
		compiled:     compiled,
		patternName:  patternName,
		timeFormat:   cfg.TimeFormat,
		timeField:    cfg.TimeField,
		levelField:   cfg.LevelField,
		messageField: cfg.MessageField,
		customFields: cfg.CustomFields,
	}, nil
}

// Parse parses a log line using the compiled grok pattern.
func (p *GrokParser) Parse(line string, source string) (*types.LogEvent, error) {
	if line == "" {
		return nil, fmt.Errorf("empty log line")
	}

	result, ok := p.compiled.MatchAgainst(line)
	if !ok {
		// If no match, return the raw line as message
		return &types.LogEvent{
			Timestamp: time.Now(),
			Message:   line,
			Source:    source,
			Fields:    make(map[string]string),
		}, nil
	}

	fields := result.Collect()

	event := &types.LogEvent{
		Source: source,
		Fields: fields,
	}

	// Extract timestamp
	timeField := p.timeField
	if timeField == "" {
		timeField = "timestamp" // Default field name
	}

	if tsStr, ok := fields[timeField]; ok {
		var ts time.Time
		var err error

		if p.timeFormat != "" {
			ts, err = time.Parse(p.timeFormat, tsStr)
		} else {
			ts, err = ParseTimestamp(tsStr)
		}

		if err == nil {
			event.Timestamp = ts
			delete(fields, timeField)
		} else {
			event.Timestamp = time.Now()
		}
	} else {
		event.Timestamp = time.Now()
	}

	// Extract log level
	levelField := p.levelField
	if levelField == "" {
		levelField = "level" // Default field name
	}

	if level, ok := fields[levelField]; ok {
		event.Level = NormalizeLogLevel(level)
		delete(fields, levelField)
	}

	// Extract message
	messageField := p.messageField
	if messageField == "" {
		messageField = "message" // Default field name
	}

	if msg, ok := fields[messageField]; ok {
		event.Message = msg
		delete(fields, messageField)
	} else {
		event.Message = line
	}

	// Add custom fields
	for key, value := range p.customFields {
		fields[key] = value
	}

	return event, nil
}

// ExtractTag exposes the EXTRACT metadata the compiler recorded for a named
// field, for callers layering typed field conversion above this parser (see
// the "convert" transformer).
func (p *GrokParser) ExtractTag(field string) (string, bool) {
	return p.compiled.GetExtract(field)
}

// Name returns the parser name
func (p *GrokParser) Name() string {
	return fmt.Sprintf("grok(%s)", p.patternName)
}

// GetAvailableGrokPatterns returns list of available named grok patterns
func GetAvailableGrokPatterns() []string {
	patterns := make([]string, 0, len(namedGrokPatterns))
	for name := range namedGrokPatterns {
		patterns = append(patterns, name)
	}
	sort.Strings(patterns)
	return patterns
}
