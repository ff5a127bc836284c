package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alantheprice/appforge/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScan_LoadsSourceFilesSorted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/util.ts", "export const x = 1\n")
	writeFile(t, root, "app/page.tsx", "export default function Page() {}\n")
	writeFile(t, root, "image.png", "binary")

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "app/page.tsx", files[0].Path)
	assert.Equal(t, "lib/util.ts", files[1].Path)
}

func TestScan_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "dist/\nsecret.ts\n")
	writeFile(t, root, "dist/bundle.js", "built")
	writeFile(t, root, "secret.ts", "const key = 1\n")
	writeFile(t, root, "lib/util.ts", "export const x = 1\n")

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "lib/util.ts", files[0].Path)
}

func TestScan_SkipsDependencyDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/react/index.js", "module.exports = {}")
	writeFile(t, root, ".next/cache.js", "cache")
	writeFile(t, root, "app/page.tsx", "export default function Page() {}\n")

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "app/page.tsx", files[0].Path)
}

func TestCategorize(t *testing.T) {
	cases := map[string]plan.Category{
		"app/page.tsx":              plan.CategoryPage,
		"app/layout.tsx":            plan.CategoryLayout,
		"app/api/users/route.ts":    plan.CategoryAPI,
		"app/globals.css":           plan.CategoryStyle,
		"README.md":                 plan.CategoryDocumentation,
		"lib/types/user.ts":         plan.CategoryType,
		"hooks/useCart.ts":          plan.CategoryHook,
		"components/List.tsx":       plan.CategoryComponent,
		"package.json":              plan.CategoryConfig,
		"next.config.js":            plan.CategoryConfig,
		"lib/helpers.ts":            plan.CategoryUtility,
	}
	for path, want := range cases {
		assert.Equal(t, want, categorize(path), "path %q", path)
	}
}
