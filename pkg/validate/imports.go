package validate

import (
	"fmt"
	"path"
	"regexp"

	"github.com/alantheprice/appforge/pkg/generate"
)

var (
	importFromRegex = regexp.MustCompile(`(?m)^\s*(?:import|export)\s+[^;]*?\bfrom\s+['"]([^'"]+)['"]`)
	bareImportRegex = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	requireRegex    = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)
)

// checkImports verifies that every relative import in a file resolves
// to a path present in the generated set. Package imports (react,
// next/..., the @/ alias) are out of scope for this heuristic.
func checkImports(file *generate.GeneratedFile, paths map[string]bool) []string {
	var errors []string
	fromDir := path.Dir(file.Path)

	for _, specifier := range importSpecifiers(file.Content) {
		if len(specifier) == 0 || specifier[0] != '.' {
			continue
		}
		if !resolvesInSet(fromDir, specifier, paths) {
			errors = append(errors, fmt.Sprintf("import %q does not resolve to a generated file", specifier))
		}
	}
	return errors
}

func importSpecifiers(content string) []string {
	var specifiers []string
	for _, re := range []*regexp.Regexp{importFromRegex, bareImportRegex, requireRegex} {
		for _, match := range re.FindAllStringSubmatch(content, -1) {
			specifiers = append(specifiers, match[1])
		}
	}
	return specifiers
}
