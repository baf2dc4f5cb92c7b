package debugger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByPathReadsOnceAndCachesThereafter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	c := NewSourceFileCache(nil)
	lines := c.GetByPath(path)
	require.Equal(t, []string{"package main", "", "func main() {}", ""}, lines)

	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0o644))
	again := c.GetByPath(path)
	assert.Equal(t, lines, again, "a second GetByPath must return the cached lines, not re-read the file")
}

func TestGetByPathMissingFileYieldsSingleHumanReadableLine(t *testing.T) {
	c := NewSourceFileCache(nil)
	lines := c.GetByPath("/does/not/exist.go")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "/does/not/exist.go")
}

func TestGetByReferenceUsesFetchCallbackOnce(t *testing.T) {
	calls := 0
	fetch := func(ref int) (string, error) {
		calls++
		return fmt.Sprintf("line one for %d\nline two", ref), nil
	}
	c := NewSourceFileCache(fetch)

	lines := c.GetByReference(7)
	assert.Equal(t, []string{"line one for 7", "line two"}, lines)

	c.GetByReference(7)
	assert.Equal(t, 1, calls, "a second GetByReference for the same ref must not invoke fetch again")
}

func TestGetByReferenceFetchErrorYieldsSingleHumanReadableLine(t *testing.T) {
	fetch := func(ref int) (string, error) { return "", fmt.Errorf("boom") }
	c := NewSourceFileCache(fetch)

	lines := c.GetByReference(3)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "boom")
}

func TestGetByReferenceWithoutFetcherYieldsPlaceholder(t *testing.T) {
	c := NewSourceFileCache(nil)
	lines := c.GetByReference(1)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "no source fetcher")
}

func TestFlushEmptiesBothCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	fetchCalls := 0
	fetch := func(ref int) (string, error) {
		fetchCalls++
		return "x", nil
	}
	c := NewSourceFileCache(fetch)
	c.GetByPath(path)
	c.GetByReference(1)
	require.Equal(t, 1, fetchCalls)

	c.Flush()

	c.GetByReference(1)
	assert.Equal(t, 2, fetchCalls, "Flush must drop the reference cache so fetch runs again")

	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0o644))
	lines := c.GetByPath(path)
	assert.Equal(t, []string{"changed", ""}, lines, "Flush must drop the path cache so the file is re-read")
}

func TestSplitLinesNormalizesLineEndings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitLines("a\r\nb\rc"))
}
