package validate

import (
	"regexp"
	"sort"

	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/plan"
)

// SecurityFinding is one security heuristic hit in a generated file.
type SecurityFinding struct {
	Path     string    `json:"path"`
	Concern  string    `json:"concern"`
	Snippet  string    `json:"snippet"`
	Severity RiskLevel `json:"severity"`
}

// Credential-shaped patterns. Key-name prefixes keep false positives
// down: a bare 40-char string is not a finding, "secret_key = <40 chars>"
// is.
var (
	apiKeyRegex = regexp.MustCompile(`(?i)(api_key|apikey|api-key|access_key|secret_key|auth_token|bearer_token|client_secret|private_key)["']?\s*(=|:)\s*['"][a-zA-Z0-9_.\-=/+]{16,128}['"]`)

	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd|passphrase)["']?\s*(=|:)\s*['"][a-zA-Z0-9_.\-=/+]{8,64}['"]`)

	dbURLRegex = regexp.MustCompile(`(?i)(mongodb|mysql|postgresql|postgres|redis|amqp):\/\/[^\s'"]*:[^\s'"]*@[^\s'"]+`)

	knownKeyRegex = regexp.MustCompile(`(sk|pk)_(test|live)_[a-zA-Z0-9]{24,}|sk-[a-zA-Z0-9]{20,}|AIza[0-9A-Za-z\-_]{35}|ghp_[a-zA-Z0-9]{36}|(AKIA|ASIA)[0-9A-Z]{16}`)
)

// Dynamic evaluation and injection patterns.
var (
	evalRegex        = regexp.MustCompile(`\beval\s*\(|new\s+Function\s*\(`)
	interpQueryRegex = regexp.MustCompile("(?i)`[^`]*\\b(select|insert|update|delete)\\b[^`]*\\$\\{")
	rawInputRegex    = regexp.MustCompile(`(?:req(?:uest)?\.(?:body|query|params)|searchParams\.get\s*\()`)
	validationRegex  = regexp.MustCompile(`(?i)\b(validate|sanitize|parse|safeParse|zod|schema|z\.object)\b`)
)

type securityCheck struct {
	concern  string
	regex    *regexp.Regexp
	severity RiskLevel
}

var securityChecks = []securityCheck{
	{"dynamic code evaluation", evalRegex, RiskHigh},
	{"hardcoded credential", apiKeyRegex, RiskHigh},
	{"hardcoded password", passwordRegex, RiskHigh},
	{"known provider key", knownKeyRegex, RiskHigh},
	{"credentials in connection URL", dbURLRegex, RiskHigh},
	{"interpolated query string", interpQueryRegex, RiskMedium},
}

// scanSecurity runs the security heuristics over the generated set and
// grades the aggregate risk. One high-severity finding, or three or
// more medium findings, makes the overall risk high.
func scanSecurity(files []*generate.GeneratedFile) ([]SecurityFinding, RiskLevel) {
	var findings []SecurityFinding

	for _, file := range files {
		for _, check := range securityChecks {
			if match := check.regex.FindString(file.Content); match != "" {
				findings = append(findings, SecurityFinding{
					Path:     file.Path,
					Concern:  check.concern,
					Snippet:  truncateSnippet(match),
					Severity: check.severity,
				})
			}
		}
		if finding, ok := checkUnvalidatedInput(file); ok {
			findings = append(findings, finding)
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Concern < findings[j].Concern
	})
	return findings, gradeRisk(findings)
}

// checkUnvalidatedInput flags handler files that read untrusted request
// input with no visible validation or parsing call.
func checkUnvalidatedInput(file *generate.GeneratedFile) (SecurityFinding, bool) {
	if file.Category != plan.CategoryAPI && file.Category != plan.CategoryMiddleware {
		return SecurityFinding{}, false
	}
	match := rawInputRegex.FindString(file.Content)
	if match == "" || validationRegex.MatchString(file.Content) {
		return SecurityFinding{}, false
	}
	return SecurityFinding{
		Path:     file.Path,
		Concern:  "unvalidated request input",
		Snippet:  truncateSnippet(match),
		Severity: RiskMedium,
	}, true
}

func gradeRisk(findings []SecurityFinding) RiskLevel {
	high := 0
	medium := 0
	for _, f := range findings {
		switch f.Severity {
		case RiskHigh:
			high++
		case RiskMedium:
			medium++
		}
	}
	switch {
	case high > 0 || medium >= 3:
		return RiskHigh
	case medium > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

func truncateSnippet(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
