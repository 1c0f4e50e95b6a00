package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func headingLevel(sel *goquery.Selection) int {
	name := goquery.NodeName(sel)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}

// headingSection renders the heading plus every sibling up to the next
// heading of the same or a higher level.
func headingSection(heading *goquery.Selection) (string, error) {
	level := headingLevel(heading)
	parts := []string{}

	html, err := goquery.OuterHtml(heading)
	if err != nil {
		return "", err
	}
	parts = append(parts, html)

	var loopErr error
	heading.NextAll().EachWithBreak(func(_ int, sibling *goquery.Selection) bool {
		if l := headingLevel(sibling); l != 0 && l <= level {
			return false
		}
		html, err := goquery.OuterHtml(sibling)
		if err != nil {
			loopErr = err
			return false
		}
		parts = append(parts, html)
		return true
	})
	if loopErr != nil {
		return "", loopErr
	}
	return strings.Join(parts, "\n"), nil
}

// ExtractAnchorContent pulls the document section a #fragment points at:
// the element with that id (expanded to its whole section when it is a
// heading), an element carrying a matching name attribute, or the
// heading that contains a link to the fragment. Returns "" when nothing
// in the document matches.
func ExtractAnchorContent(doc *goquery.Document, anchorId string) (string, error) {
	element := doc.FindMatcher(goquery.Single(`[id=` + quoteAttr(anchorId) + `]`))
	if element.Length() > 0 {
		if headingLevel(element) != 0 {
			return headingSection(element)
		}
		return goquery.OuterHtml(element)
	}

	element = doc.FindMatcher(goquery.Single(`[name=` + quoteAttr(anchorId) + `]`))
	if element.Length() > 0 {
		return goquery.OuterHtml(element)
	}

	link := doc.FindMatcher(goquery.Single(`a[href="#` + anchorId + `"]`))
	if link.Length() > 0 {
		parent := link.Parent()
		if headingLevel(parent) != 0 {
			return headingSection(parent)
		}
	}

	return "", nil
}

func quoteAttr(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}
