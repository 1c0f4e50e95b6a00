package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sectionedPage = `
<html><body>
<h1>Manual</h1>
<h2 id="install">Installation</h2>
<p>Step one.</p>
<p>Step two.</p>
<h3 id="install-linux">On Linux</h3>
<p>Use the package manager.</p>
<h2 id="usage">Usage</h2>
<p>Run the binary.</p>
<div id="appendix"><p>Extra notes.</p></div>
<a name="legacy"></a>
<h2><a href="#linked">Linked section</a></h2>
<p>Linked content.</p>
<h2>After</h2>
</body></html>
`

func TestExtractAnchorContentHeading(t *testing.T) {
	doc := docFromString(t, sectionedPage)

	out, err := ExtractAnchorContent(doc, "install")
	require.NoError(t, err)
	require.Contains(t, out, "Installation")
	require.Contains(t, out, "Step one.")
	require.Contains(t, out, "On Linux")
	require.NotContains(t, out, "Usage")
	require.NotContains(t, out, "Run the binary.")
}

func TestExtractAnchorContentNonHeading(t *testing.T) {
	doc := docFromString(t, sectionedPage)

	out, err := ExtractAnchorContent(doc, "appendix")
	require.NoError(t, err)
	require.Contains(t, out, "Extra notes.")
	require.NotContains(t, out, "Usage")
}

func TestExtractAnchorContentNameAttribute(t *testing.T) {
	doc := docFromString(t, sectionedPage)

	out, err := ExtractAnchorContent(doc, "legacy")
	require.NoError(t, err)
	require.Contains(t, out, `name="legacy"`)
}

func TestExtractAnchorContentViaLink(t *testing.T) {
	doc := docFromString(t, sectionedPage)

	out, err := ExtractAnchorContent(doc, "linked")
	require.NoError(t, err)
	require.Contains(t, out, "Linked section")
	require.Contains(t, out, "Linked content.")
	require.NotContains(t, out, "After")
}

func TestExtractAnchorContentMissing(t *testing.T) {
	doc := docFromString(t, sectionedPage)

	out, err := ExtractAnchorContent(doc, "nonexistent")
	require.NoError(t, err)
	require.Equal(t, "", out)
}
