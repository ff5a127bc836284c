// Package workspace scans an existing project directory so incremental
// generation runs can feed the current files back in as context.
package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/plan"
)

// maxFileSize caps how much of a single file is loaded as context.
const maxFileSize = 256 * 1024

// sourceExtensions lists the files worth feeding back to the model.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".css": true, ".json": true, ".md": true,
}

// alwaysSkipped are directories never scanned regardless of ignore
// rules.
var alwaysSkipped = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, ".appforge": true,
}

// Scan walks rootDir and loads existing source files, honoring
// .gitignore and .appforge/.ignore rules. The result is ordered by
// path.
func Scan(rootDir string) ([]*generate.GeneratedFile, error) {
	rules := ignoreRules(rootDir)

	var files []*generate.GeneratedFile
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if alwaysSkipped[info.Name()] || (rules != nil && rules.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !sourceExtensions[filepath.Ext(rel)] || info.Size() > maxFileSize {
			return nil
		}
		if rules != nil && rules.MatchesPath(rel) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		files = append(files, &generate.GeneratedFile{
			Path:     rel,
			Content:  string(content),
			Category: categorize(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ignoreRules combines .gitignore and .appforge/.ignore into one rule
// set, or nil when neither exists.
func ignoreRules(rootDir string) *ignore.GitIgnore {
	var allRules []string
	for _, name := range []string{".gitignore", filepath.Join(".appforge", ".ignore")} {
		if rules, err := readIgnoreFile(filepath.Join(rootDir, name)); err == nil {
			allRules = append(allRules, rules...)
		}
	}
	if len(allRules) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(allRules...)
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// categorize infers an artifact category from a path so scanned files
// slot into the same related-file heuristics as generated ones.
func categorize(path string) plan.Category {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(path, "app/api/") || base == "middleware.ts":
		return plan.CategoryAPI
	case base == "layout.tsx" || base == "layout.jsx":
		return plan.CategoryLayout
	case base == "page.tsx" || base == "page.jsx":
		return plan.CategoryPage
	case strings.HasSuffix(base, ".css"):
		return plan.CategoryStyle
	case strings.HasSuffix(base, ".md"):
		return plan.CategoryDocumentation
	case strings.Contains(path, "types") && strings.HasSuffix(base, ".ts"):
		return plan.CategoryType
	case strings.HasPrefix(base, "use") && (strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".tsx")):
		return plan.CategoryHook
	case strings.Contains(path, "components/"):
		return plan.CategoryComponent
	case base == "package.json" || strings.HasSuffix(base, ".config.js") || base == "tsconfig.json":
		return plan.CategoryConfig
	}
	return plan.CategoryUtility
}
