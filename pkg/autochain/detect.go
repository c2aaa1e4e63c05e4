package autochain

import (
	"regexp"
	"strconv"
	"strings"
)

// confidencePattern matches "CONFIDENCE_SCORE: 9/10" and "Confidence
// Score: 9 / 10" variants, case-insensitively. The first match in the
// scanned text wins.
var confidencePattern = regexp.MustCompile(`(?i)confidence[_ ]score\s*:\s*(\d+)\s*/\s*10\b`)

// ExtractConfidence scans text for a confidence score and returns it as an
// integer in 0..10, or nil when no pattern is present. The extraction is
// total: any input yields either a score or nil, never an error.
func ExtractConfidence(text string) *int {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v > 10 {
		return nil
	}
	return &v
}

// PRPDetection describes the active specification found in a completion
// event's changed files.
type PRPDetection struct {
	SystemName  string
	SpecFile    string
	SpecContent string
	Confidence  *int
}

// DetectSpecFile returns the first changed file that is a PRP document:
// a markdown file directly under PRPs/ and not under any templates/ path.
// When several match, the first in list order is chosen.
func DetectSpecFile(changedFiles []string) (string, bool) {
	for _, f := range changedFiles {
		if isPRPFile(f) {
			return f, true
		}
	}
	return "", false
}

func isPRPFile(path string) bool {
	if !strings.HasPrefix(path, "PRPs/") || !strings.HasSuffix(path, ".md") {
		return false
	}
	if strings.Contains(path, "templates/") {
		return false
	}
	// Only files directly under PRPs/, not nested directories.
	rest := strings.TrimPrefix(path, "PRPs/")
	return !strings.Contains(rest, "/")
}

// SystemNameFromSpecFile derives a human-readable system name from the
// spec file name: "PRPs/site-intel.md" becomes "site-intel".
func SystemNameFromSpecFile(specFile string) string {
	base := strings.TrimPrefix(specFile, "PRPs/")
	return strings.TrimSuffix(base, ".md")
}
