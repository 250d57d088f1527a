package answer

import (
	"strings"
	"sync"
)

const (
	// DefaultDelimiter separates alternatives in an answer spec.
	DefaultDelimiter = "/"
	// DefaultEscape makes the following delimiter literal.
	DefaultEscape = `\`

	defaultCacheSize = 1024
)

// ParseAlternatives splits spec into its accepted alternatives using the
// default delimiter and escape.
func ParseAlternatives(spec string) []string {
	return splitAlternatives(spec, DefaultDelimiter, DefaultEscape)
}

// Parser splits answer specs with a configurable delimiter and escape and
// memoizes the result per distinct spec. It is safe for concurrent use.
type Parser struct {
	delimiter string
	escape    string
	maxCached int

	mu    sync.RWMutex
	cache map[string][]string
}

// NewParser returns a parser. Empty delimiter or escape fall back to the defaults.
func NewParser(delimiter, escape string) *Parser {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if escape == "" {
		escape = DefaultEscape
	}
	return &Parser{
		delimiter: delimiter,
		escape:    escape,
		maxCached: defaultCacheSize,
		cache:     make(map[string][]string),
	}
}

// Parse returns the alternatives of spec. The returned slice is a copy and may
// be modified by the caller.
func (p *Parser) Parse(spec string) []string {
	p.mu.RLock()
	cached, ok := p.cache[spec]
	p.mu.RUnlock()
	if ok {
		return append([]string(nil), cached...)
	}

	alts := splitAlternatives(spec, p.delimiter, p.escape)

	p.mu.Lock()
	if len(p.cache) >= p.maxCached {
		// reset once full
		p.cache = make(map[string][]string)
	}
	p.cache[spec] = alts
	p.mu.Unlock()

	return append([]string(nil), alts...)
}

// splitAlternatives never returns an empty slice: an empty spec yields [""].
// An escape directly before the delimiter is consumed and the delimiter kept
// literally; any other escape is kept verbatim, so in a run of escapes only the
// last one is consumed.
func splitAlternatives(spec, delimiter, escape string) []string {
	var (
		alts    []string
		current strings.Builder
	)
	for i := 0; i < len(spec); {
		rest := spec[i:]
		switch {
		case strings.HasPrefix(rest, escape+delimiter):
			current.WriteString(delimiter)
			i += len(escape) + len(delimiter)
		case strings.HasPrefix(rest, delimiter):
			alts = append(alts, strings.TrimSpace(current.String()))
			current.Reset()
			i += len(delimiter)
		default:
			current.WriteByte(spec[i])
			i++
		}
	}
	return append(alts, strings.TrimSpace(current.String()))
}
