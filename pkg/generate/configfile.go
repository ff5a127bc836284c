package generate

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/alantheprice/appforge/pkg/plan"
)

// configStrategy generates configuration files. The package manifest and
// the TypeScript config are synthesized deterministically from the plan
// instead of asking the model; everything else goes through the usual
// prompt/parse cycle.
type configStrategy struct {
	*modelStrategy
}

func (s *configStrategy) Name() string { return "config" }

func (s *configStrategy) instruction(req Request) string {
	return `You are an expert build engineer. Produce the requested configuration
file for a Next.js project. Keep it minimal and consistent with the project's
architecture decisions.`
}

func (s *configStrategy) Generate(ctx context.Context, req Request) (*GeneratedFile, error) {
	if file, ok := s.synthesize(req); ok {
		return file, nil
	}
	return s.generate(ctx, req, s)
}

func (s *configStrategy) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error) {
	if file, ok := s.synthesize(req); ok {
		// Synthesized files skip the model; deliver the content as a
		// single chunk so consumers still see the full text stream.
		if onChunk != nil {
			onChunk(file.Content, file.Content)
		}
		return file, nil
	}
	return s.generateStream(ctx, req, s, onChunk)
}

// synthesize returns a deterministic file for the two well-known config
// paths, or ok=false for everything else.
func (s *configStrategy) synthesize(req Request) (*GeneratedFile, bool) {
	switch req.Task.Path {
	case plan.PackageJSONPath:
		return s.packageManifest(req), true
	case plan.TSConfigPath:
		return s.tsConfig(req), true
	}
	return nil, false
}

// knownPackageVersions pins the dependency ranges written into generated
// manifests.
var knownPackageVersions = map[string]string{
	"next":         "^14.2.0",
	"react":        "^18.3.0",
	"react-dom":    "^18.3.0",
	"tailwindcss":  "^3.4.0",
	"typescript":   "^5.4.0",
	"@types/react": "^18.3.0",
	"@types/node":  "^20.12.0",
	"zod":          "^3.23.0",
	"zustand":      "^4.5.0",
}

var devPackages = map[string]bool{
	"typescript":   true,
	"tailwindcss":  true,
	"@types/react": true,
	"@types/node":  true,
}

func packageVersion(name string) string {
	if version, ok := knownPackageVersions[name]; ok {
		return version
	}
	return "latest"
}

func (s *configStrategy) packageManifest(req Request) *GeneratedFile {
	deps := make(map[string]string)
	devDeps := make(map[string]string)
	for _, pkg := range req.Context.Packages {
		if devPackages[pkg] {
			devDeps[pkg] = packageVersion(pkg)
		} else {
			deps[pkg] = packageVersion(pkg)
		}
	}

	name := strings.ToLower(strings.ReplaceAll(req.Context.ProjectName, " ", "-"))
	if name == "" {
		name = "generated-app"
	}

	manifest := map[string]any{
		"name":    name,
		"version": "0.1.0",
		"private": true,
		"scripts": map[string]string{
			"dev":   "next dev",
			"build": "next build",
			"start": "next start",
			"lint":  "next lint",
		},
		"dependencies":    deps,
		"devDependencies": devDeps,
	}

	content, _ := json.MarshalIndent(manifest, "", "  ")

	exports := make([]string, 0, len(deps))
	for pkg := range deps {
		exports = append(exports, pkg)
	}
	sort.Strings(exports)

	return &GeneratedFile{
		Path:     req.Task.Path,
		Content:  string(content) + "\n",
		Category: req.Task.Category,
		Metadata: map[string]any{"synthesized": true, "dependencies": exports},
	}
}

func (s *configStrategy) tsConfig(req Request) *GeneratedFile {
	content := `{
  "compilerOptions": {
    "target": "ES2017",
    "lib": ["dom", "dom.iterable", "esnext"],
    "allowJs": true,
    "skipLibCheck": true,
    "strict": true,
    "noEmit": true,
    "esModuleInterop": true,
    "module": "esnext",
    "moduleResolution": "bundler",
    "resolveJsonModule": true,
    "isolatedModules": true,
    "jsx": "preserve",
    "incremental": true,
    "plugins": [{"name": "next"}],
    "paths": {"@/*": ["./*"]}
  },
  "include": ["next-env.d.ts", "**/*.ts", "**/*.tsx", ".next/types/**/*.ts"],
  "exclude": ["node_modules"]
}
`
	return &GeneratedFile{
		Path:     req.Task.Path,
		Content:  content,
		Category: req.Task.Category,
		Metadata: map[string]any{"synthesized": true},
	}
}

// Synthesizable reports whether a path is produced deterministically
// without a model call.
func Synthesizable(path string) bool {
	return path == plan.PackageJSONPath || path == plan.TSConfigPath
}
