package plan

// Paths of the always-required tasks injected by the repair pass.
const (
	ReadmePath      = "README.md"
	RootLayoutPath  = "app/layout.tsx"
	GlobalStylePath = "app/globals.css"
	NextConfigPath  = "next.config.js"
	PackageJSONPath = "package.json"
	TSConfigPath    = "tsconfig.json"
)

// requiredTask describes one task the repair pass guarantees is present.
type requiredTask struct {
	task FileTask
}

var requiredTasks = []requiredTask{
	{FileTask{Path: ReadmePath, Category: CategoryDocumentation, Description: "Project documentation entry point", Priority: 0}},
	{FileTask{Path: RootLayoutPath, Category: CategoryLayout, Description: "Root application layout", Priority: 0}},
	{FileTask{Path: GlobalStylePath, Category: CategoryStyle, Description: "Base global stylesheet", Priority: 0}},
	{FileTask{Path: NextConfigPath, Category: CategoryConfig, Description: "Base framework configuration", Priority: 0}},
	{FileTask{Path: PackageJSONPath, Category: CategoryConfig, Description: "Package manifest", Priority: 1, Dependencies: []string{ReadmePath}}},
}

// corePackages are always present after repair: framework, runtime and the
// default UI library.
var corePackages = []string{"next", "react", "react-dom", "tailwindcss"}

// typeScriptPackages are added when any planned path has a TypeScript
// suffix.
var typeScriptPackages = []string{"typescript", "@types/react", "@types/node"}

// Repair augments a freshly parsed plan with the always-required tasks and
// dependency-aware package defaults. Repairing an already-repaired plan is
// a no-op: every injection is guarded by a presence check, so the pass is
// idempotent.
func Repair(p *GenerationPlan) {
	for _, required := range requiredTasks {
		if p.HasTask(required.task.Path) {
			continue
		}
		task := required.task
		task.Dependencies = append([]string(nil), required.task.Dependencies...)
		p.Tasks = append(p.Tasks, task)
	}

	for _, pkg := range corePackages {
		if !p.HasPackage(pkg) {
			p.Packages = append(p.Packages, pkg)
		}
	}

	if p.IsTypeScript() {
		for _, pkg := range typeScriptPackages {
			if !p.HasPackage(pkg) {
				p.Packages = append(p.Packages, pkg)
			}
		}
	}
}
