package arbiter

import (
	"regexp"
	"strconv"
)

// The generative service's output is free text, not contractually
// structured. Numeric self-reports are pulled out with narrow pattern
// matching and a documented default on failure; the extracted values are
// treated as already-validated inputs by the propagator - this parsing
// never leaks into the score arithmetic.
const (
	// DefaultAnalysisUncertainty is used when the analysis stage's
	// self-reported uncertainty cannot be parsed.
	DefaultAnalysisUncertainty = 50

	// DefaultApprovalRating is used when the validation stage's
	// approval rating cannot be parsed.
	DefaultApprovalRating = 80
)

var (
	uncertaintyPattern = regexp.MustCompile(`(?i)uncertainty\s*(?:rating|estimate|score|level)?\s*[:=]?\s*(\d{1,3})`)
	approvalPattern    = regexp.MustCompile(`(?i)approval\s*(?:rating|score)?\s*[:=]?\s*(\d{1,3})`)
)

// extractUncertainty pulls the self-reported uncertainty (0-100) out of
// generated analysis text, defaulting to 50 when absent.
func extractUncertainty(text string) int {
	return extractScore(uncertaintyPattern, text, DefaultAnalysisUncertainty)
}

// extractApproval pulls the approval rating (0-100) out of generated
// validation text, defaulting to 80 when absent.
func extractApproval(text string) int {
	return extractScore(approvalPattern, text, DefaultApprovalRating)
}

func extractScore(pattern *regexp.Regexp, text string, fallback int) int {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return fallback
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return fallback
	}
	return clamp100(n)
}
