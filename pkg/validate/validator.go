// Package validate runs deterministic syntax, consistency and security
// heuristics over a generated file set. Every check is a pure function
// of file content; nothing is executed and nothing touches the network.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/plan"
)

// RiskLevel grades the aggregate security posture of a generated set.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FileResult holds the findings for one generated file.
type FileResult struct {
	Path     string   `json:"path"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Score    float64  `json:"score"`
}

// Report is the outcome of validating a full generated set.
type Report struct {
	Files            []FileResult      `json:"files"`
	OverallScore     float64           `json:"overall_score"`
	SecurityRisk     RiskLevel         `json:"security_risk"`
	SecurityFindings []SecurityFinding `json:"security_findings,omitempty"`
	UnusedTypes      []string          `json:"unused_types,omitempty"`
	Pass             bool              `json:"pass"`
}

// ErrorCount returns the total hard errors across all files.
func (r *Report) ErrorCount() int {
	count := 0
	for _, f := range r.Files {
		count += len(f.Errors)
	}
	return count
}

// WarningCount returns the total warnings across all files.
func (r *Report) WarningCount() int {
	count := 0
	for _, f := range r.Files {
		count += len(f.Warnings)
	}
	return count
}

// Validator checks a generated file set against quality and security
// heuristics.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// ValidateProject runs every heuristic over the generated set and
// produces the aggregate report, emitting validation progress events
// when emit is non-nil. Pass requires zero hard errors, a security risk
// below high, and no declared type entity left unused.
func (v *Validator) ValidateProject(files []*generate.GeneratedFile, emit events.Emitter) *Report {
	if emit == nil {
		emit = func(string, any) {}
	}
	emit(events.EventTypeValidationStart, events.StatusEvent("validating", fmt.Sprintf("Validating %d files", len(files))))

	paths := make(map[string]bool, len(files))
	for _, f := range files {
		paths[f.Path] = true
	}

	report := &Report{Files: make([]FileResult, 0, len(files))}
	var totalScore float64

	for _, file := range files {
		result := v.validateFile(file, paths)
		report.Files = append(report.Files, result)
		totalScore += result.Score
		emit(events.EventTypeValidationFile, events.ValidationFileEvent(result.Path, len(result.Errors), len(result.Warnings), result.Score))
	}
	if len(files) > 0 {
		report.OverallScore = totalScore / float64(len(files))
	}

	report.SecurityFindings, report.SecurityRisk = scanSecurity(files)
	report.UnusedTypes = unusedTypeExports(files)

	report.Pass = report.ErrorCount() == 0 &&
		report.SecurityRisk != RiskHigh &&
		len(report.UnusedTypes) == 0

	emit(events.EventTypeValidationComplete, map[string]any{
		"pass":          report.Pass,
		"overall_score": report.OverallScore,
		"security_risk": string(report.SecurityRisk),
		"errors":        report.ErrorCount(),
		"warnings":      report.WarningCount(),
	})
	return report
}

func (v *Validator) validateFile(file *generate.GeneratedFile, paths map[string]bool) FileResult {
	result := FileResult{Path: file.Path}

	if syntaxChecked(file.Category) {
		result.Errors = append(result.Errors, checkSyntax(file.Content)...)
	}
	result.Errors = append(result.Errors, checkImports(file, paths)...)
	result.Warnings = append(result.Warnings, checkCategory(file)...)

	result.Score = score(len(result.Errors), len(result.Warnings))
	return result
}

// score computes the deterministic per-file quality score.
func score(errorCount, warningCount int) float64 {
	s := 10 - 2*float64(errorCount) - 0.5*float64(warningCount)
	if s < 0 {
		return 0
	}
	return s
}

// syntaxChecked reports whether balance heuristics apply to a category.
// Prose and static assets have no bracket grammar to check.
func syntaxChecked(category plan.Category) bool {
	switch category {
	case plan.CategoryDocumentation, plan.CategoryStatic:
		return false
	}
	return true
}

// checkCategory applies the category-specific heuristics.
func checkCategory(file *generate.GeneratedFile) []string {
	var warnings []string

	switch file.Category {
	case plan.CategoryPage, plan.CategoryLayout, plan.CategoryLoading, plan.CategoryErrorPage, plan.CategoryNotFound:
		if !strings.Contains(file.Content, "export default") {
			warnings = append(warnings, "page component has no default export")
		}
	}

	if usesClientState(file.Content) && !hasClientDirective(file.Content) {
		switch file.Category {
		case plan.CategoryPage, plan.CategoryLayout, plan.CategoryComponent, plan.CategoryHook:
			warnings = append(warnings, `uses React state without a "use client" directive`)
		}
	}
	return warnings
}

func usesClientState(content string) bool {
	return strings.Contains(content, "useState(") ||
		strings.Contains(content, "useEffect(") ||
		strings.Contains(content, "useReducer(") ||
		strings.Contains(content, "useRef(")
}

func hasClientDirective(content string) bool {
	head := content
	if len(head) > 200 {
		head = head[:200]
	}
	return strings.Contains(head, `"use client"`) || strings.Contains(head, "'use client'")
}

// unusedTypeExports finds exports declared in type-category files that
// no other generated file references.
func unusedTypeExports(files []*generate.GeneratedFile) []string {
	var unused []string
	for _, typeFile := range files {
		if typeFile.Category != plan.CategoryType {
			continue
		}
		for _, export := range typeFile.Exports {
			if export == "" {
				continue
			}
			used := false
			for _, other := range files {
				if other.Path == typeFile.Path {
					continue
				}
				if strings.Contains(other.Content, export) {
					used = true
					break
				}
			}
			if !used {
				unused = append(unused, fmt.Sprintf("%s: %s", typeFile.Path, export))
			}
		}
	}
	sort.Strings(unused)
	return unused
}
