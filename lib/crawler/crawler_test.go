package crawler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"siteharvest/lib/crawler"
	"siteharvest/lib/crawlstore"
	"siteharvest/lib/crawlstore/db"
	"siteharvest/lib/testutil"

	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	pages      map[string]string
	currentUrl string
	navigated  []string
}

func (r *fakeRenderer) Navigate(ctx context.Context, url string) error {
	if _, ok := r.pages[url]; !ok {
		return fmt.Errorf("no such page: %s", url)
	}
	r.currentUrl = url
	r.navigated = append(r.navigated, url)
	return nil
}

func (r *fakeRenderer) HTML(ctx context.Context) (string, error) {
	return r.pages[r.currentUrl], nil
}

func (r *fakeRenderer) FrameHTML(ctx context.Context, selector string) (string, error) {
	return "", fmt.Errorf("no frame matching %q", selector)
}

func (r *fakeRenderer) DismissPopups(ctx context.Context) {}

func page(title, body string) string {
	return `<html><head><title>` + title + `</title></head><body>` + body + `</body></html>`
}

func setupCrawl(t *testing.T, renderer *fakeRenderer, opts crawler.Options) (*crawler.Crawler, crawlstore.Store) {
	service, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "crawler_test",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	store := crawlstore.New(service.DB)

	opts.RenderDelay = time.Millisecond
	opts.PolitenessDelay = time.Millisecond
	c, err := crawler.New(renderer, nil, store, opts)
	require.NoError(t, err)
	return c, store
}

func TestCrawlSite(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://site.test/docs/index.html": page("Index", `
			<a href="a.html">A</a>
			<a href="b.html">B</a>
			<a href="dup.html">Dup</a>
			<a href="skipme/secret.html">Hidden</a>
			<a href="https://elsewhere.test/out.html">Out</a>`),
		"https://site.test/docs/a.html":             page("A", `<p>alpha content</p>`),
		"https://site.test/docs/b.html":             page("B", `<p>beta content</p>`),
		"https://site.test/docs/dup.html":           page("A", `<p>alpha content</p>`),
		"https://site.test/docs/skipme/secret.html": page("Hidden", `<p>hidden</p>`),
	}}

	outputDir := t.TempDir()
	c, store := setupCrawl(t, renderer, crawler.Options{
		OutputDir:    outputDir,
		SkipPatterns: []string{"skipme"},
	})

	ctx := context.Background()
	err := c.Run(ctx, []crawler.Site{{
		Url:  "https://site.test/docs/index.html",
		Root: "https://site.test/docs/",
	}})
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(outputDir, "site.test_docs--index.html"))
	require.FileExists(t, filepath.Join(outputDir, "site.test_docs--a.html"))
	require.FileExists(t, filepath.Join(outputDir, "site.test_docs--b.html"))

	// same content as a.html, deduplicated
	require.NoFileExists(t, filepath.Join(outputDir, "site.test_docs--dup.html"))
	// matched a skip pattern
	require.NoFileExists(t, filepath.Join(outputDir, "site.test_docs_skipme--secret.html"))
	require.NotContains(t, renderer.navigated, "https://site.test/docs/skipme/secret.html")
	// outside the crawl root
	require.NotContains(t, renderer.navigated, "https://elsewhere.test/out.html")

	pages, err := store.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	meta, err := os.ReadFile(filepath.Join(outputDir, "meta.json"))
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(meta, &entries))
	require.Len(t, entries, 3)
}

func TestCrawlRevisitIsIdempotent(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://site.test/a.html": page("A", `<a href="b.html">B</a>`),
		"https://site.test/b.html": page("B", `<a href="a.html">A</a>`),
	}}

	c, _ := setupCrawl(t, renderer, crawler.Options{OutputDir: t.TempDir()})

	err := c.Run(context.Background(), []crawler.Site{{
		Url:  "https://site.test/a.html",
		Root: "https://site.test/",
	}})
	require.NoError(t, err)

	// the a <-> b cycle must not recurse forever
	require.Len(t, renderer.navigated, 2)
}

func TestCrawlMarkdownConversion(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://site.test/doc.html": page("Doc", `<h1>Heading</h1><p>Body text.</p>`),
	}}

	outputDir := t.TempDir()
	c, _ := setupCrawl(t, renderer, crawler.Options{
		OutputDir:         outputDir,
		ConvertToMarkdown: true,
	})

	err := c.Run(context.Background(), []crawler.Site{{
		Url:  "https://site.test/doc.html",
		Root: "https://site.test/",
	}})
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(outputDir, "site.test_--doc.md"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "# Heading")
}

func TestCrawlBrokenLinkIsSkipped(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		"https://site.test/index.html": page("Index", `<a href="missing.html">Missing</a>`),
	}}

	c, store := setupCrawl(t, renderer, crawler.Options{OutputDir: t.TempDir()})

	ctx := context.Background()
	err := c.Run(ctx, []crawler.Site{{
		Url:  "https://site.test/index.html",
		Root: "https://site.test/",
	}})
	require.NoError(t, err)

	pages, err := store.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
}
