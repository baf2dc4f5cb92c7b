package debugger

import (
	"fmt"
	"os"
	"strings"
)

// SourceReferenceFetcher retrieves the full text of a source identified
// by a DAP sourceReference (the adapter's "source" request).
type SourceReferenceFetcher func(ref int) (string, error)

// SourceFileCache is a lazy cache of source-file line arrays, keyed by
// either filesystem path or DAP sourceReference. Line 1 lives at index
// 0, so callers index with (line - 1).
type SourceFileCache struct {
	byPath      map[string][]string
	byReference map[int][]string
	fetch       SourceReferenceFetcher
}

// NewSourceFileCache builds an empty cache. fetch is invoked on a
// getByReference miss; it may be nil if the engine never needs
// reference-backed sources (e.g. the adapter always supplies paths).
func NewSourceFileCache(fetch SourceReferenceFetcher) *SourceFileCache {
	return &SourceFileCache{
		byPath:      make(map[string][]string),
		byReference: make(map[int][]string),
		fetch:       fetch,
	}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// GetByPath returns the cached line array for path, reading it from
// disk on first access. A read failure is surfaced as a single-element
// array carrying a human-readable error line; it is not returned as an
// error because callers (display logic) treat cache content as opaque.
func (c *SourceFileCache) GetByPath(path string) []string {
	if lines, ok := c.byPath[path]; ok {
		return lines
	}
	data, err := os.ReadFile(path)
	var lines []string
	if err != nil {
		lines = []string{fmt.Sprintf("<could not read %s: %v>", path, err)}
	} else {
		lines = splitLines(string(data))
	}
	c.byPath[path] = lines
	return lines
}

// GetByReference returns the cached line array for a DAP sourceReference,
// invoking the fetch callback on first access.
func (c *SourceFileCache) GetByReference(ref int) []string {
	if lines, ok := c.byReference[ref]; ok {
		return lines
	}
	var lines []string
	if c.fetch == nil {
		lines = []string{fmt.Sprintf("<no source fetcher for reference %d>", ref)}
	} else if text, err := c.fetch(ref); err != nil {
		lines = []string{fmt.Sprintf("<could not fetch source %d: %v>", ref, err)}
	} else {
		lines = splitLines(text)
	}
	c.byReference[ref] = lines
	return lines
}

// Flush empties the cache. Invoked on session close.
func (c *SourceFileCache) Flush() {
	c.byPath = make(map[string][]string)
	c.byReference = make(map[int][]string)
}
