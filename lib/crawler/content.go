package crawler

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/abadojack/whatlanggo"
)

var srcHrefAttr = regexp.MustCompile(`<(.*?)(src|href)="(.*?)"(.*?)>`)

// RewriteRelativeURLs prefixes relative src and href attributes with the
// site root so saved documents keep working assets and links. Absolute
// urls pass through untouched.
func RewriteRelativeURLs(root, content string) string {
	return srcHrefAttr.ReplaceAllStringFunc(content, func(tag string) string {
		match := srcHrefAttr.FindStringSubmatch(tag)
		if strings.HasPrefix(match[3], "http") {
			return tag
		}
		return "<" + match[1] + match[2] + `="` + root + match[3] + `"` + match[4] + ">"
	})
}

// ToMarkdown converts a html document to markdown with ATX headings.
func ToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(html)
}

// DetectLanguage guesses the natural language of the page text. Returns
// "" when there is too little text to judge.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < 20 {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.String()
}

// ContentHash fingerprints page content for duplicate detection.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
