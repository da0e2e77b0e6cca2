package ticker

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// SymbolSet is the immutable vocabulary of known ticker symbols.
type SymbolSet map[string]struct{}

func NewSymbolSet(symbols ...string) SymbolSet {
	set := make(SymbolSet, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// ReadSymbols reads one symbol per line, upper-casing each entry.
func ReadSymbols(r io.Reader) (SymbolSet, error) {
	set := make(SymbolSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker symbols: %w", err)
	}
	return set, nil
}

func LoadSymbols(path string) (SymbolSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer f.Close()

	set, err := ReadSymbols(f)
	if err != nil {
		return nil, err
	}

	slog.Info("[Ticker] Loaded symbol vocabulary",
		slog.String("path", path),
		slog.Int("count", len(set)))
	return set, nil
}
