// Package crawler walks an authenticated site recursively, rendering
// each page in the browser, saving the content to disk and recording
// metadata in the crawl store.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"siteharvest/lib/crawlstore"
	"siteharvest/lib/htmlutil"
	"siteharvest/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siteharvest.lib.crawler")

// Renderer produces fully rendered page content. *browser.Page
// implements it.
type Renderer interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	FrameHTML(ctx context.Context, selector string) (string, error)
	DismissPopups(ctx context.Context)
}

// Site is one root to harvest. Root defaults to the url's origin and
// bounds the crawl: only links under it are followed.
type Site struct {
	Url  string `json:"url"`
	Root string `json:"root,omitempty"`
}

type Options struct {
	OutputDir         string        `json:"output_dir"`
	MetaFile          string        `json:"meta_file,omitempty"`
	SkipPatterns      []string      `json:"skip_patterns,omitempty"`
	IframeSelector    string        `json:"iframe_selector,omitempty"`
	ConvertToAbsolute bool          `json:"convert_to_absolute_url,omitempty"`
	ConvertToMarkdown bool          `json:"convert_to_markdown,omitempty"`
	ExtractAnchors    bool          `json:"extract_anchors,omitempty"`
	AllowSubdomains   bool          `json:"allow_subdomains,omitempty"`
	OnePageOnly       bool          `json:"one_page_only,omitempty"`
	MaxDepth          int           `json:"max_depth,omitempty"`
	RenderDelay       time.Duration `json:"-"`
	PolitenessDelay   time.Duration `json:"-"`
}

const (
	defaultRenderDelay     = 2 * time.Second
	defaultPolitenessDelay = time.Second
	defaultMaxDepth        = 100
)

type Crawler struct {
	renderer Renderer
	assets   *resty.Client
	store    crawlstore.Store
	opts     Options
}

// NewAssetClient builds the http client used for non-html downloads
// (pdfs, archives, plain files) that need no javascript rendering.
// A non-nil output receives request/response dumps when debug logging
// is on.
func NewAssetClient(output restyutil.InstrumentOutput) (*resty.Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, otel.Tracer("siteharvest.lib.crawler.assets"), output)
	return client, nil
}

func New(renderer Renderer, assets *resty.Client, store crawlstore.Store, opts Options) (*Crawler, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory not set")
	}
	if opts.RenderDelay == 0 {
		opts.RenderDelay = defaultRenderDelay
	}
	if opts.PolitenessDelay == 0 {
		opts.PolitenessDelay = defaultPolitenessDelay
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MetaFile == "" {
		opts.MetaFile = filepath.Join(opts.OutputDir, "meta.json")
	}
	return &Crawler{
		renderer: renderer,
		assets:   assets,
		store:    store,
		opts:     opts,
	}, nil
}

// Run harvests every site in order, then writes the metadata export.
func (c *Crawler) Run(ctx context.Context, sites []Site) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	err := os.MkdirAll(c.opts.OutputDir, 0755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output directory")
		return err
	}

	for _, site := range sites {
		root := site.Root
		if root == "" {
			parsed, err := url.Parse(site.Url)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "invalid site url")
				return fmt.Errorf("invalid site url %q: %w", site.Url, err)
			}
			root = parsed.Scheme + "://" + parsed.Host + "/"
		}
		scope, err := NewScope(root, c.opts.AllowSubdomains)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid site root")
			return err
		}
		err = c.scrapePage(ctx, scope, site.Url, 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "harvest failed")
			return err
		}
	}

	err = c.store.ExportMeta(ctx, c.opts.MetaFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export metadata")
		return err
	}
	return nil
}

func (c *Crawler) skipped(pageUrl string) bool {
	for _, pattern := range c.opts.SkipPatterns {
		if strings.Contains(pageUrl, pattern) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Crawler) scrapePage(ctx context.Context, scope Scope, pageUrl string, depth int) error {
	ctx, span := tracer.Start(ctx, "scrapePage")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", pageUrl),
		attribute.Int("depth", depth),
	)

	if depth > c.opts.MaxDepth {
		slog.DebugContext(ctx, "max depth reached", slog.String("url", pageUrl))
		return nil
	}
	if c.skipped(pageUrl) {
		slog.DebugContext(ctx, "url matches skip pattern", slog.String("url", pageUrl))
		return nil
	}

	stripped, fragment := StripFragment(pageUrl)
	visitKey := stripped
	if c.opts.ExtractAnchors && fragment != "" {
		visitKey = pageUrl
	}
	alreadyVisited, err := c.store.MarkVisited(ctx, visitKey)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if alreadyVisited {
		return nil
	}

	file, err := FileForUrl(stripped, fragment, c.opts.ConvertToMarkdown, c.opts.ExtractAnchors)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if file.IsImage {
		slog.DebugContext(ctx, "skipping image", slog.String("url", pageUrl))
		return nil
	}

	slog.InfoContext(
		ctx, "scraping",
		slog.String("url", pageUrl),
		slog.String("file", file.Name),
	)

	if !file.IsDoc {
		return c.downloadAsset(ctx, stripped, fragment, file)
	}

	err = c.renderer.Navigate(ctx, stripped)
	if err != nil {
		// Broken links are logged and skipped, not fatal for the
		// whole harvest.
		span.RecordError(err)
		slog.WarnContext(
			ctx, "navigation failed",
			slog.String("url", pageUrl),
			slog.String("err", err.Error()),
		)
		return nil
	}
	if err := sleep(ctx, c.opts.RenderDelay); err != nil {
		return err
	}
	c.renderer.DismissPopups(ctx)

	content, err := c.renderContent(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	fullDoc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Metadata and links come from the full page even when only an
	// anchored section gets saved.
	title := htmlutil.NormalizeSpace(fullDoc.Find("title").First().Text())
	lastUpdated := LastUpdated(fullDoc)
	language := DetectLanguage(fullDoc.Text())
	links := htmlutil.GetAnchors(ctx, fullDoc.Selection)

	if c.opts.ExtractAnchors && fragment != "" {
		section, err := ExtractAnchorContent(fullDoc, fragment)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if section == "" {
			slog.WarnContext(
				ctx, "anchor not found, saving full page",
				slog.String("url", pageUrl),
				slog.String("anchor", fragment),
			)
		} else {
			content = section
		}
	}

	hash := ContentHash(content)
	duplicate, err := c.store.SeenContent(ctx, hash, stripped)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if duplicate {
		slog.InfoContext(
			ctx, "skipping duplicate content",
			slog.String("url", pageUrl),
			slog.String("hash", hash),
		)
		return nil
	}

	if c.opts.ConvertToAbsolute {
		content = RewriteRelativeURLs(scope.Root, content)
	}
	if c.opts.ConvertToMarkdown {
		content, err = ToMarkdown(content)
		if err != nil {
			span.RecordError(err)
			slog.WarnContext(
				ctx, "markdown conversion failed",
				slog.String("url", pageUrl),
				slog.String("err", err.Error()),
			)
			return nil
		}
	}

	err = os.WriteFile(filepath.Join(c.opts.OutputDir, file.Name), []byte(content), 0644)
	if err != nil {
		span.RecordError(err)
		return err
	}
	err = c.store.RecordPage(ctx, crawlstore.Page{
		Url:         pageUrl,
		FileName:    file.Name,
		Title:       title,
		Anchor:      fragment,
		Language:    language,
		LastUpdated: lastUpdated,
		ContentHash: hash,
		ScrapedAt:   time.Now(),
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if c.opts.OnePageOnly {
		return nil
	}
	return c.followLinks(ctx, scope, stripped, links, depth)
}

func (c *Crawler) renderContent(ctx context.Context) (string, error) {
	if c.opts.IframeSelector != "" {
		content, err := c.renderer.FrameHTML(ctx, c.opts.IframeSelector)
		if err == nil {
			return content, nil
		}
		slog.DebugContext(ctx, "no iframe content, using main page", slog.String("err", err.Error()))
	}
	return c.renderer.HTML(ctx)
}

func (c *Crawler) downloadAsset(ctx context.Context, assetUrl, fragment string, file PageFile) error {
	ctx, span := tracer.Start(ctx, "downloadAsset")
	defer span.End()
	span.SetAttributes(attribute.String("url", assetUrl))

	res, err := c.assets.R().SetContext(ctx).Get(assetUrl)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(
			ctx, "asset download failed",
			slog.String("url", assetUrl),
			slog.String("err", err.Error()),
		)
		return nil
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "asset download failed")
		slog.WarnContext(
			ctx, "asset download failed",
			slog.String("url", assetUrl),
			slog.Int("status", res.StatusCode()),
		)
		return nil
	}

	err = os.WriteFile(filepath.Join(c.opts.OutputDir, file.Name), res.Body(), 0644)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return c.store.RecordPage(ctx, crawlstore.Page{
		Url:         assetUrl,
		FileName:    file.Name,
		Anchor:      fragment,
		ContentHash: ContentHash(string(res.Body())),
		ScrapedAt:   time.Now(),
	})
}

func (c *Crawler) followLinks(ctx context.Context, scope Scope, pageUrl string, links []htmlutil.Anchor, depth int) error {
	for _, link := range links {
		if link.Href == "" {
			continue
		}
		href, err := ResolveHref(pageUrl, link.Href)
		if err != nil {
			slog.DebugContext(
				ctx, "unparseable href",
				slog.String("href", link.Href),
				slog.String("err", err.Error()),
			)
			continue
		}
		stripped, fragment := StripFragment(href)
		if stripped == "" {
			continue
		}
		if !scope.Contains(stripped) {
			slog.DebugContext(ctx, "link outside scope", slog.String("url", stripped))
			continue
		}

		target := stripped
		if c.opts.ExtractAnchors && fragment != "" {
			target = href
		}
		err = c.scrapePage(ctx, scope, target, depth+1)
		if err != nil {
			return err
		}
		if err := sleep(ctx, c.opts.PolitenessDelay); err != nil {
			return err
		}
	}
	return nil
}
