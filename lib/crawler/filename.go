package crawler

import (
	"net/url"
	"path"
	"strings"
)

const maxFilenameLength = 200

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// SanitizeFilename replaces characters that are invalid on common
// filesystems, strips control characters and caps the length.
func SanitizeFilename(name string) string {
	const invalid = `<>:"/\|?*!#%&{}$'` + "`" + `=@+ `

	var b strings.Builder
	for _, c := range name {
		if c < 32 {
			continue
		}
		if strings.ContainsRune(invalid, c) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(c)
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_. ")
	if out == "" {
		out = "unnamed"
	}
	if len(out) > maxFilenameLength {
		out = strings.TrimRight(out[:maxFilenameLength], "_")
	}
	return out
}

// PageFile describes where a url's content lands on disk.
type PageFile struct {
	Name      string
	Extension string
	IsImage   bool
	IsDoc     bool
}

// FileForUrl derives the output file name for a url the way the harvest
// names files: host, double-underscore joined directories, double-dash
// separated leaf, original extension (".html" when absent). A fragment
// is appended to the base name when anchor extraction is on, and html
// becomes markdown when conversion is on.
func FileForUrl(rawUrl, fragment string, markdown, withAnchor bool) (PageFile, error) {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return PageFile{}, err
	}

	dir, leaf := path.Split(parsed.Path)
	ext := path.Ext(leaf)
	leaf = strings.TrimSuffix(leaf, ext)

	if imageExtensions[strings.ToLower(ext)] {
		return PageFile{Extension: ext, IsImage: true}, nil
	}
	if ext == "" {
		ext = ".html"
	}
	isDoc := ext == ".html"
	if markdown && isDoc {
		ext = ".md"
	}

	dirPart := strings.ReplaceAll(strings.Trim(dir, "/"), "/", "__")
	base := SanitizeFilename(parsed.Host + "__" + dirPart + "--" + leaf)
	if withAnchor && fragment != "" {
		base = base + "_" + SanitizeFilename(fragment)
	}

	return PageFile{
		Name:      base + ext,
		Extension: ext,
		IsDoc:     isDoc,
	}, nil
}
