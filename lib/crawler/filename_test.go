package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello_world"},
		{"a/b\\c:d", "a_b_c_d"},
		{"name?*<>|", "name"},
		{"__already__underscored__", "already_underscored"},
		{"...dots...", "dots"},
		{"", "unnamed"},
		{"???", "unnamed"},
		{"plain-name.txt", "plain-name.txt"},
	}
	for _, testCase := range testCases {
		require.Equal(
			t, testCase.expected, SanitizeFilename(testCase.input),
			"input: %q", testCase.input,
		)
	}
}

func TestFileForUrl(t *testing.T) {
	file, err := FileForUrl("https://docs.example.com/guide/intro.html", "", false, false)
	require.NoError(t, err)
	require.Equal(t, "docs.example.com_guide--intro.html", file.Name)
	require.True(t, file.IsDoc)

	file, err = FileForUrl("https://docs.example.com/guide/setup", "", false, false)
	require.NoError(t, err)
	require.Equal(t, "docs.example.com_guide--setup.html", file.Name)
	require.True(t, file.IsDoc)

	file, err = FileForUrl("https://docs.example.com/files/report.pdf", "", false, false)
	require.NoError(t, err)
	require.Equal(t, "docs.example.com_files--report.pdf", file.Name)
	require.False(t, file.IsDoc)
	require.False(t, file.IsImage)

	file, err = FileForUrl("https://docs.example.com/img/logo.png", "", false, false)
	require.NoError(t, err)
	require.True(t, file.IsImage)
}

func TestFileForUrlMarkdown(t *testing.T) {
	file, err := FileForUrl("https://example.com/page.html", "", true, false)
	require.NoError(t, err)
	require.Equal(t, "example.com_--page.md", file.Name)
	require.True(t, file.IsDoc)

	// conversion only renames html documents
	file, err = FileForUrl("https://example.com/report.pdf", "", true, false)
	require.NoError(t, err)
	require.Equal(t, "example.com_--report.pdf", file.Name)
}

func TestFileForUrlAnchor(t *testing.T) {
	file, err := FileForUrl("https://example.com/manual.html", "ch 2: setup", false, true)
	require.NoError(t, err)
	require.Equal(t, "example.com_--manual_ch_2_setup.html", file.Name)
}
