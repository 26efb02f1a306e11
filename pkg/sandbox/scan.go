package sandbox

import (
	"regexp"
	"strings"

	"github.com/steward-dev/steward/pkg/types"
)

// Finding is one security scan hit on a command line.
type Finding struct {
	Pattern     string          `json:"pattern"`
	Severity    types.RiskLevel `json:"severity"`
	Description string          `json:"description"`
}

type scanRule struct {
	match       func(string) bool
	pattern     string
	severity    types.RiskLevel
	description string
}

func substrRule(substr string, sev types.RiskLevel, desc string) scanRule {
	return scanRule{
		match:       func(cmd string) bool { return strings.Contains(cmd, substr) },
		pattern:     substr,
		severity:    sev,
		description: desc,
	}
}

func regexRule(expr string, sev types.RiskLevel, desc string) scanRule {
	re := regexp.MustCompile(expr)
	return scanRule{
		match:       re.MatchString,
		pattern:     expr,
		severity:    sev,
		description: desc,
	}
}

// scanRules flag known-dangerous command text. The list is a guardrail
// against obvious foot-guns, not a shell parser.
var scanRules = []scanRule{
	substrRule("rm -rf /", types.RiskCritical, "recursive delete from root"),
	substrRule(":(){", types.RiskCritical, "fork bomb"),
	substrRule("mkfs", types.RiskCritical, "filesystem format"),
	substrRule("> /dev/sd", types.RiskCritical, "raw disk write"),
	substrRule("dd if=/dev/zero", types.RiskHigh, "disk overwrite"),
	regexRule(`curl[^|]*\|\s*(ba|z)?sh`, types.RiskHigh, "piping curl to shell"),
	regexRule(`wget[^|]*\|\s*(ba|z)?sh`, types.RiskHigh, "piping wget to shell"),
	regexRule(`chmod\s+(-R\s+)?777`, types.RiskMedium, "world-writable permissions"),
	regexRule(`git\s+push\s+.*--force`, types.RiskMedium, "force push"),
	substrRule("history -c", types.RiskMedium, "shell history wipe"),
}

// ScanCommand runs the security scan over the full command text and
// returns every finding, lowest index first.
func (s *Sandbox) ScanCommand(command string) []Finding {
	lower := strings.ToLower(command)

	var findings []Finding
	for _, rule := range scanRules {
		if rule.match(lower) {
			findings = append(findings, Finding{
				Pattern:     rule.pattern,
				Severity:    rule.severity,
				Description: rule.description,
			})
		}
	}
	return findings
}

// hasBlockingFinding reports whether any finding is high or critical.
func hasBlockingFinding(findings []Finding) (Finding, bool) {
	for _, f := range findings {
		if f.Severity.Rank() >= types.RiskHigh.Rank() {
			return f, true
		}
	}
	return Finding{}, false
}
