package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteRelativeURLs(t *testing.T) {
	input := `<html><a href="/docs/intro.html">Intro</a>` +
		`<img src="images/logo.png">` +
		`<a href="https://other.example.com/page">External</a></html>`

	out := RewriteRelativeURLs("https://example.com", input)

	require.Contains(t, out, `href="https://example.com/docs/intro.html"`)
	require.Contains(t, out, `src="https://example.comimages/logo.png"`)
	require.Contains(t, out, `href="https://other.example.com/page"`)
}

func TestToMarkdown(t *testing.T) {
	out, err := ToMarkdown(`<h1>Title</h1><p>Some <strong>bold</strong> text.</p>`)
	require.NoError(t, err)
	require.Contains(t, out, "# Title")
	require.Contains(t, out, "**bold**")
}

func TestDetectLanguage(t *testing.T) {
	english := DetectLanguage("The quick brown fox jumps over the lazy dog, and then it keeps on running through the forest until the morning comes.")
	require.Equal(t, "English", english)

	require.Equal(t, "", DetectLanguage("ok"))
	require.Equal(t, "", DetectLanguage("   "))
}

func TestContentHash(t *testing.T) {
	a := ContentHash("<html>a</html>")
	b := ContentHash("<html>b</html>")
	require.NotEqual(t, a, b)
	require.Equal(t, a, ContentHash("<html>a</html>"))
	require.Len(t, a, 32)
	require.Equal(t, strings.ToLower(a), a)
}
