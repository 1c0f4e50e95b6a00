// Package browser owns the headless Chrome process. Launch acquires the
// process as a scoped resource, Close is safe to call from any exit path
// and is guaranteed to tear the process down at most once.
package browser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siteharvest.lib.browser")

var ErrNoBinary = fmt.Errorf("no chrome/chromium binary found")
var ErrUnsupportedVersion = fmt.Errorf("browser version is too old for the automation protocol")

// the new headless mode the launcher requests only exists from Chrome 109 on,
// older binaries silently ignore it and pop up a window
const minChromeMajor = 109

var defaultBinPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
}

type Options struct {
	// explicit browser binary, skips discovery
	Bin string `json:"bin"`
	// profile directory, defaults to a temp dir owned by the launcher
	UserDataDir string `json:"user_data_dir"`
	NoHeadless  bool   `json:"no_headless"`
}

type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
	version  string

	closeOnce sync.Once
	closeErr  error
}

func findBin(explicit string, searchPaths []string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNoBinary, explicit)
		}
		return explicit, nil
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBinary
}

func majorVersion(product string) (int, error) {
	// the protocol reports a product string like "HeadlessChrome/123.0.6312.86"
	_, versionStr, found := strings.Cut(product, "/")
	if !found {
		return 0, fmt.Errorf("unexpected browser product string: %q", product)
	}
	majorStr, _, _ := strings.Cut(versionStr, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, fmt.Errorf("unexpected browser product string: %q", product)
	}
	return major, nil
}

// Launch resolves a browser binary, starts it and connects to it. It fails
// before touching the network when no binary can be found or when the binary
// is too old to drive.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	ctx, span := tracer.Start(ctx, "browser:Launch")
	defer span.End()

	bin, err := findBin(opts.Bin, defaultBinPaths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve browser binary")
		return nil, err
	}
	span.SetAttributes(attribute.String("bin", bin))

	l := launcher.New().
		Bin(bin).
		Headless(!opts.NoHeadless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-breakpad").
		Set("disable-hang-monitor").
		Set("disable-popup-blocking").
		Set("disable-prompt-on-repost").
		Set("disable-sync").
		Set("metrics-recording-only").
		Set("mute-audio").
		Set("disable-blink-features", "AutomationControlled")
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create user data dir")
			return nil, err
		}
		l = l.UserDataDir(opts.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch browser process")
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to browser")
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	out := &Browser{rod: b, launcher: l}

	version, err := b.Version()
	if err != nil {
		out.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query browser version")
		return nil, err
	}
	out.version = version.Product
	span.SetAttributes(attribute.String("product", version.Product))

	major, err := majorVersion(version.Product)
	if err != nil {
		out.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse browser version")
		return nil, err
	}
	if major < minChromeMajor {
		out.Close()
		err := fmt.Errorf("%w: %s < %d", ErrUnsupportedVersion, version.Product, minChromeMajor)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported browser version")
		return nil, err
	}

	return out, nil
}

// the product string reported by the browser, e.g. "HeadlessChrome/123.0.6312.86"
func (b *Browser) Version() string {
	return b.version
}

func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.rod.Close()
		b.launcher.Kill()
	})
	return b.closeErr
}

// Page opens a blank tab whose Close also tears down the owning browser
// process, so handing the page off hands off the whole resource.
func (b *Browser) Page(ctx context.Context) (*Page, error) {
	page, err := b.rod.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &Page{page: page.Context(ctx), owner: b}, nil
}
