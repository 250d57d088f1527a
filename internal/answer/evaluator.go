package answer

import (
	"golang.org/x/text/cases"
)

// IsCorrect reports whether response exactly equals one of the alternatives in
// spec. When caseSensitive is false both sides are Unicode case folded first.
// The response is not trimmed; only the alternatives are.
func IsCorrect(spec, response string, caseSensitive bool) bool {
	return matches(ParseAlternatives(spec), response, caseSensitive)
}

// Evaluator checks responses against answer specs using a shared memoizing Parser.
type Evaluator struct {
	parser *Parser
}

// NewEvaluator returns an Evaluator using the default delimiter and escape.
func NewEvaluator() *Evaluator {
	return &Evaluator{parser: NewParser(DefaultDelimiter, DefaultEscape)}
}

// NewEvaluatorWithParser returns an Evaluator backed by p.
func NewEvaluatorWithParser(p *Parser) *Evaluator {
	return &Evaluator{parser: p}
}

// IsCorrect has the same semantics as the package-level IsCorrect.
func (e *Evaluator) IsCorrect(spec, response string, caseSensitive bool) bool {
	return matches(e.parser.Parse(spec), response, caseSensitive)
}

// Alternatives returns the parsed alternatives of spec.
func (e *Evaluator) Alternatives(spec string) []string {
	return e.parser.Parse(spec)
}

func matches(alternatives []string, response string, caseSensitive bool) bool {
	if !caseSensitive {
		// a Caser holds state and must not be shared across goroutines
		fold := cases.Fold()
		response = fold.String(response)
		for _, alt := range alternatives {
			if fold.String(alt) == response {
				return true
			}
		}
		return false
	}
	for _, alt := range alternatives {
		if alt == response {
			return true
		}
	}
	return false
}
