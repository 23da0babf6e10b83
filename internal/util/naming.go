package util

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var reportNameRegexp = regexp.MustCompile(`[^\p{L}\p{N}]+`)

const maxSlugRunes = 48

// GenerateReportName builds a file name for an analysis report from the bug
// title and the run start time, e.g. "bug-mana-check-20240102-150405.md".
// Letters of any script are kept so Korean titles stay readable.
func GenerateReportName(title string, started time.Time, ext string) string {
	slug := strings.Trim(reportNameRegexp.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "-")
	}
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("bug-%s-%s.%s", slug, started.Format("20060102-150405"), strings.TrimPrefix(ext, "."))
}
