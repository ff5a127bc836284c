package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_CreatesAtVersionOne(t *testing.T) {
	s := New()

	artifact, err := s.Upsert("p1", "app/page.tsx", "export default function Page() {}\n")
	require.NoError(t, err)
	assert.Equal(t, 1, artifact.Version)
	assert.Equal(t, len(artifact.Content), artifact.CharsAdded)
	assert.Zero(t, artifact.CharsRemoved)
}

func TestUpsert_IdenticalContentIsIdempotent(t *testing.T) {
	s := New()

	first, err := s.Upsert("p1", "a.ts", "const x = 1\n")
	require.NoError(t, err)
	second, err := s.Upsert("p1", "a.ts", "const x = 1\n")
	require.NoError(t, err)

	assert.Equal(t, first.Version, second.Version)
}

func TestUpsert_ChangedContentIncrementsVersionWithDiffStats(t *testing.T) {
	s := New()

	_, err := s.Upsert("p1", "a.ts", "const x = 1\n")
	require.NoError(t, err)
	artifact, err := s.Upsert("p1", "a.ts", "const x = 1\nconst y = 2\n")
	require.NoError(t, err)

	assert.Equal(t, 2, artifact.Version)
	assert.Equal(t, len("const y = 2\n"), artifact.CharsAdded)
	assert.Zero(t, artifact.CharsRemoved)
}

func TestUpsert_RequiresKeys(t *testing.T) {
	s := New()
	_, err := s.Upsert("", "a.ts", "x")
	assert.Error(t, err)
	_, err = s.Upsert("p1", "", "x")
	assert.Error(t, err)
}

func TestListByProject_SortedAndIsolated(t *testing.T) {
	s := New()
	_, _ = s.Upsert("p1", "b.ts", "b")
	_, _ = s.Upsert("p1", "a.ts", "a")
	_, _ = s.Upsert("p2", "c.ts", "c")

	artifacts := s.ListByProject("p1")
	require.Len(t, artifacts, 2)
	assert.Equal(t, "a.ts", artifacts[0].Path)
	assert.Equal(t, "b.ts", artifacts[1].Path)

	assert.Empty(t, s.ListByProject("unknown"))
}

func TestListByProject_ReturnsCopies(t *testing.T) {
	s := New()
	_, _ = s.Upsert("p1", "a.ts", "original")

	s.ListByProject("p1")[0].Content = "mutated"
	assert.Equal(t, "original", s.Get("p1", "a.ts").Content)
}

func TestExportDir(t *testing.T) {
	s := New()
	_, _ = s.Upsert("p1", "app/page.tsx", "page\n")
	_, _ = s.Upsert("p1", "lib/util.ts", "util\n")

	dir := t.TempDir()
	require.NoError(t, s.ExportDir("p1", dir))

	page, err := os.ReadFile(filepath.Join(dir, "app", "page.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "page\n", string(page))

	util, err := os.ReadFile(filepath.Join(dir, "lib", "util.ts"))
	require.NoError(t, err)
	assert.Equal(t, "util\n", string(util))
}

func TestSummary(t *testing.T) {
	s := New()
	assert.Equal(t, "no artifacts", s.Summary("p1"))

	_, _ = s.Upsert("p1", "a.ts", "v1")
	_, _ = s.Upsert("p1", "a.ts", "v2")
	_, _ = s.Upsert("p1", "b.ts", "b")
	assert.Equal(t, "2 files, 1 revised", s.Summary("p1"))
}
