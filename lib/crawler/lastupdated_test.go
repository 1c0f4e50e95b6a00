package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func docFromString(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestLastUpdated(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "norwegian month",
			html:     `<body><p>Sist oppdatert 02. des. 2025</p></body>`,
			expected: "2025-12-02",
		},
		{
			name:     "english month",
			html:     `<body><p>Last updated 5. Mar. 2024</p></body>`,
			expected: "2024-03-05",
		},
		{
			name:     "iso timestamp",
			html:     `<body><p>dated 2025-11-27T07:32:40Z</p></body>`,
			expected: "2025-11-27",
		},
		{
			name:     "iso date",
			html:     `<body><p>Last updated 2024-12-06</p></body>`,
			expected: "2024-12-06",
		},
		{
			name:     "with colon",
			html:     `<body><p>sist oppdatert: 2024-12-06</p></body>`,
			expected: "2024-12-06",
		},
		{
			name:     "meta fallback",
			html:     `<head><meta property="article:modified_time" content="2024-06-15T10:00:00Z"></head><body></body>`,
			expected: "2024-06-15",
		},
		{
			name:     "no stamp",
			html:     `<body><p>Nothing here.</p></body>`,
			expected: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			doc := docFromString(t, testCase.html)
			require.Equal(t, testCase.expected, LastUpdated(doc))
		})
	}
}
