package generate

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// ComponentName derives a PascalCase component name from a file path, e.g.
// "components/user-profile.tsx" becomes "UserProfile".
func ComponentName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	// Route files take their name from the enclosing directory.
	if base == "page" || base == "route" || base == "index" || base == "layout" {
		dir := filepath.Base(filepath.Dir(path))
		if dir != "." && dir != "/" && dir != "app" {
			base = dir + "-" + base
		}
	}

	parts := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' ' || r == '[' || r == ']'
	})
	var name strings.Builder
	for _, part := range parts {
		name.WriteString(titleCaser.String(part))
	}
	if name.Len() == 0 {
		return "Component"
	}
	return name.String()
}
