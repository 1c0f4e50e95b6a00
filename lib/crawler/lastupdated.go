package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// Month abbreviations for "sist oppdatert 02. des. 2025" style stamps.
var norwegianMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "mai": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"okt": time.October, "nov": time.November, "des": time.December,
}

var lastUpdatedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:sist oppdatert|last updated):?\s+(\d{1,2})\.\s+(\w{3,4})\.?\s+(\d{4})`),
	regexp.MustCompile(`(?i)(?:dated|datert):?\s+(\d{4}-\d{2}-\d{2})T\d{2}:\d{2}:\d{2}Z`),
	regexp.MustCompile(`(?i)(?:sist oppdatert|last updated):?\s+(\d{4}-\d{2}-\d{2})`),
}

var lastUpdatedMetaSelectors = []string{
	`meta[property="article:modified_time"]`,
	`meta[property="article:published_time"]`,
	`meta[name="last-modified"]`,
	`meta[name="date"]`,
	`meta[http-equiv="last-modified"]`,
}

// LastUpdated looks for a "last updated" stamp in the document text,
// understanding both Norwegian and English phrasing, and falls back to
// common meta tags. Returns the date as YYYY-MM-DD, or "" when the page
// carries no stamp.
func LastUpdated(doc *goquery.Document) string {
	text := doc.Text()

	for _, pattern := range lastUpdatedPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if len(match) == 2 {
			if _, err := time.Parse("2006-01-02", match[1]); err != nil {
				continue
			}
			return match[1]
		}
		if date, ok := parseDayMonthYear(match[1], match[2], match[3]); ok {
			return date
		}
	}

	for _, selector := range lastUpdatedMetaSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok || content == "" {
			continue
		}
		parsed, err := dateparse.ParseAny(content)
		if err != nil {
			continue
		}
		return parsed.Format("2006-01-02")
	}

	return ""
}

func parseDayMonthYear(dayStr, monthStr, yearStr string) (string, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", false
	}

	month, ok := norwegianMonths[strings.ToLower(strings.TrimSuffix(monthStr, "."))]
	if !ok {
		parsed, err := dateparse.ParseAny(fmt.Sprintf("%d %s %d", day, monthStr, year))
		if err != nil {
			return "", false
		}
		return parsed.Format("2006-01-02"), true
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day {
		return "", false
	}
	return date.Format("2006-01-02"), true
}
