package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeBackend struct {
	out   string
	err   error
	calls int
	input string
	opts  Options
}

func (f *fakeBackend) Summarize(_ context.Context, input string, opts Options) (string, error) {
	f.calls++
	f.input = input
	f.opts = opts
	return f.out, f.err
}

type mapCache map[string]string

func (m mapCache) GetSummary(_ context.Context, key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) SetSummary(_ context.Context, key, summary string) {
	m[key] = summary
}

func TestFallbackOnFailure(t *testing.T) {
	text := strings.Repeat("a", 300)
	s := New(&fakeBackend{err: errors.New("model error")}, nil)

	res := s.Summarize(context.Background(), text)
	want := strings.Repeat("a", 200) + "..."
	if res.Text != want {
		t.Errorf("Expected 200 chars plus ellipsis, got %d chars", len(res.Text))
	}
	if !res.IsFallback() {
		t.Error("Expected fallback result")
	}
	if res.Err == nil {
		t.Error("Expected the backend error to be recorded")
	}
}

func TestFallback(t *testing.T) {
	short := strings.Repeat("b", 200)
	if got := Fallback(short); got != short {
		t.Errorf("Expected text of exactly 200 chars unchanged, got %q", got)
	}
	if got := Fallback(""); got != "" {
		t.Errorf("Expected empty text unchanged, got %q", got)
	}

	multibyte := strings.Repeat("é", 250)
	got := Fallback(multibyte)
	if got != strings.Repeat("é", 200)+Ellipsis {
		t.Errorf("Expected fallback to count characters, not bytes")
	}
}

func TestSummarizeUsesBackend(t *testing.T) {
	backend := &fakeBackend{out: "short summary"}
	s := New(backend, nil)

	text := strings.Repeat("x", 2000)
	res := s.Summarize(context.Background(), text)
	if res.Text != "short summary" || res.Source != SourceBackend {
		t.Errorf("Unexpected result %+v", res)
	}
	if len([]rune(backend.input)) != MaxInputRunes {
		t.Errorf("Expected input capped at %d chars, got %d", MaxInputRunes, len(backend.input))
	}
	if backend.opts != (Options{MinLength: 30, MaxLength: 150, DoSample: false}) {
		t.Errorf("Unexpected options %+v", backend.opts)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	backend := &fakeBackend{out: "never"}
	res := New(backend, nil).Summarize(context.Background(), "   ")
	if !res.IsFallback() || res.Text != "   " {
		t.Errorf("Expected whitespace input returned unchanged, got %+v", res)
	}
	if !errors.Is(res.Err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", res.Err)
	}
	if backend.calls != 0 {
		t.Error("Backend should not be called for empty input")
	}
}

func TestSummarizeEmptyBackendOutput(t *testing.T) {
	res := New(&fakeBackend{out: " "}, nil).Summarize(context.Background(), "some text")
	if !res.IsFallback() || res.Text != "some text" {
		t.Errorf("Expected fallback on empty backend output, got %+v", res)
	}
}

func TestNilBackendFallsBack(t *testing.T) {
	res := New(nil, nil).Summarize(context.Background(), "body")
	if !res.IsFallback() || res.Text != "body" {
		t.Errorf("Expected fallback, got %+v", res)
	}
}

func TestSummarizeCache(t *testing.T) {
	cache := mapCache{}
	backend := &fakeBackend{out: "cached summary"}
	s := New(backend, cache)

	first := s.Summarize(context.Background(), "a long post")
	second := s.Summarize(context.Background(), "a long post")

	if backend.calls != 1 {
		t.Errorf("Expected 1 backend call, got %d", backend.calls)
	}
	if first.Source != SourceBackend || second.Source != SourceCache {
		t.Errorf("Unexpected sources %s, %s", first.Source, second.Source)
	}
	if second.Text != "cached summary" {
		t.Errorf("Expected cached text, got %q", second.Text)
	}

	failing := New(&fakeBackend{err: errors.New("down")}, cache)
	failing.Summarize(context.Background(), "another post")
	if len(cache) != 1 {
		t.Errorf("Fallbacks must not be cached, cache has %d entries", len(cache))
	}
}
