package courselookup

import (
	"github.com/oarkflow/courselookup/utils"
)

// Analyzer turns indexed or queried text into terms.
type Analyzer interface {
	Analyze(text string) []string
}

// AnalyzerFunc allows plain functions to satisfy the Analyzer interface.
type AnalyzerFunc func(text string) []string

// Analyze implements Analyzer by invoking the wrapped function.
func (fn AnalyzerFunc) Analyze(text string) []string {
	return fn(text)
}

// ForwardAnalyzer folds, lowercases and splits text on every rune that is
// not a letter or digit. Stop words are dropped when configured.
type ForwardAnalyzer struct {
	stopWords map[string]struct{}
}

// ForwardAnalyzerOption configures a ForwardAnalyzer.
type ForwardAnalyzerOption func(*ForwardAnalyzer)

// ForwardAnalyzerWithStopWords sets the words dropped from both documents
// and queries. Words are folded the same way as indexed text.
func ForwardAnalyzerWithStopWords(words ...string) ForwardAnalyzerOption {
	return func(fa *ForwardAnalyzer) {
		fa.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			for _, tok := range utils.Tokenize(w) {
				fa.stopWords[tok] = struct{}{}
			}
		}
	}
}

// NewForwardAnalyzer returns a configured ForwardAnalyzer. Without options
// no words are dropped.
func NewForwardAnalyzer(opts ...ForwardAnalyzerOption) *ForwardAnalyzer {
	fa := &ForwardAnalyzer{}
	for _, opt := range opts {
		opt(fa)
	}
	return fa
}

// Analyze returns the terms of text in order of appearance. Duplicates are
// kept.
func (fa *ForwardAnalyzer) Analyze(text string) []string {
	tokens := utils.Tokenize(text)
	if len(fa.stopWords) == 0 {
		return tokens
	}
	out := tokens[:0]
	for _, tok := range tokens {
		if _, skip := fa.stopWords[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var defaultAnalyzer Analyzer = NewForwardAnalyzer()
