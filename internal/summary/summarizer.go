// Package summary condenses post bodies into a short TL;DR.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
)

const (
	MaxInputRunes    = 1024
	MinSummaryLength = 30
	MaxSummaryLength = 150
	FallbackRunes    = 200
	Ellipsis         = "..."
)

var ErrEmptyInput = errors.New("summary: empty input")

// Options are the decoding parameters handed to a Backend.
type Options struct {
	MinLength int
	MaxLength int
	DoSample  bool
}

// DefaultOptions asks for 30-150 tokens with greedy decoding.
func DefaultOptions() Options {
	return Options{MinLength: MinSummaryLength, MaxLength: MaxSummaryLength, DoSample: false}
}

// Backend is an external summarisation capability.
type Backend interface {
	Summarize(ctx context.Context, input string, opts Options) (string, error)
}

// Cache stores backend output keyed by input digest.
type Cache interface {
	GetSummary(ctx context.Context, key string) (string, bool)
	SetSummary(ctx context.Context, key, summary string)
}

type Source string

const (
	SourceBackend  Source = "backend"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type Result struct {
	Text   string
	Source Source
	// Err is the backend failure that caused a fallback.
	Err error
}

func (r Result) IsFallback() bool { return r.Source == SourceFallback }

type Summarizer struct {
	backend Backend
	cache   Cache
	opts    Options
}

// New builds a Summarizer. A nil backend always falls back; a nil cache
// disables caching.
func New(backend Backend, cache Cache) *Summarizer {
	return &Summarizer{backend: backend, cache: cache, opts: DefaultOptions()}
}

// Summarize never fails: any backend error yields Fallback(text).
func (s *Summarizer) Summarize(ctx context.Context, text string) Result {
	input := Truncate(text, MaxInputRunes)
	if strings.TrimSpace(input) == "" {
		return Result{Text: Fallback(text), Source: SourceFallback, Err: ErrEmptyInput}
	}
	if s.backend == nil {
		return Result{Text: Fallback(text), Source: SourceFallback, Err: errors.New("summary: no backend configured")}
	}

	key := CacheKey(input)
	if s.cache != nil {
		if cached, ok := s.cache.GetSummary(ctx, key); ok {
			return Result{Text: cached, Source: SourceCache}
		}
	}

	out, err := s.backend.Summarize(ctx, input, s.opts)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("summary: backend returned empty output")
	}
	if err != nil {
		slog.Warn("[Summarizer] Falling back to truncation",
			slog.String("error", err.Error()))
		return Result{Text: Fallback(text), Source: SourceFallback, Err: err}
	}

	if s.cache != nil {
		s.cache.SetSummary(ctx, key, out)
	}
	return Result{Text: out, Source: SourceBackend}
}

// Fallback is the first 200 characters plus "..." when text is longer than
// 200 characters, otherwise text unchanged.
func Fallback(text string) string {
	r := []rune(text)
	if len(r) > FallbackRunes {
		return string(r[:FallbackRunes]) + Ellipsis
	}
	return text
}

// Truncate caps text at n characters.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		return string(r[:n])
	}
	return text
}

func CacheKey(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
