// Package ticker picks a best-guess ticker symbol out of a post.
package ticker

import (
	"regexp"
	"strings"
)

var dollarTagPattern = regexp.MustCompile(`\$[A-Z]{2,5}`)

// Strategy is one way of finding a ticker. Strategies are tried in order and
// the first hit wins.
type Strategy interface {
	Name() string
	Find(title, body string) (string, bool)
}

// DollarTag matches "$" followed by 2-5 letters anywhere in the upper-cased
// title and body. Only the first tag counts.
type DollarTag struct{}

func (DollarTag) Name() string { return "dollar_tag" }

func (DollarTag) Find(title, body string) (string, bool) {
	combined := strings.ToUpper(title + " " + body)
	match := dollarTagPattern.FindString(combined)
	if match == "" {
		return "", false
	}
	return match[1:], true
}

// TitleToken returns the first whitespace-separated title token that is a
// known symbol.
type TitleToken struct {
	Symbols SymbolSet
}

func (TitleToken) Name() string { return "title_token" }

func (t TitleToken) Find(title, _ string) (string, bool) {
	for _, word := range strings.Fields(strings.ToUpper(title)) {
		if t.Symbols.Contains(word) {
			return word, true
		}
	}
	return "", false
}

type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the default precedence: dollar tags first, then title
// tokens from the vocabulary.
func NewResolver(symbols SymbolSet) *Resolver {
	return NewResolverWithStrategies(DollarTag{}, TitleToken{Symbols: symbols})
}

func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func (r *Resolver) Strategies() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// Resolve returns nil when no strategy finds a symbol.
func (r *Resolver) Resolve(title, body string) *string {
	for _, s := range r.strategies {
		if symbol, ok := s.Find(title, body); ok {
			return &symbol
		}
	}
	return nil
}
