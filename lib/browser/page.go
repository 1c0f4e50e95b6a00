package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// how long a single selector probe waits before moving on to the next
// fallback selector
const probeTimeout = 3 * time.Second

// how long navigation waits for the dom to settle after load, javascript
// heavy pages keep mutating for a while after the load event
const stableTimeout = 10 * time.Second

var ErrNoSelectorMatch = fmt.Errorf("none of the candidate selectors matched")

// close button patterns for cookie banners and modals that sit on top of
// the content
var popupCloseSelectors = []string{
	"button.close",
	".modal-close",
	`[data-dismiss="modal"]`,
	".popup-close",
	".ui-dialog-titlebar-close",
	`button[aria-label="Close"]`,
	".close-button",
}

// Page wraps a browser tab. It owns the whole browser process, closing the
// page closes the process too.
type Page struct {
	page  *rod.Page
	owner *Browser

	closeOnce sync.Once
	closeErr  error
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	// give javascript time to render, tolerate pages that never go stable
	err := page.Timeout(stableTimeout).WaitStable(time.Second)
	if err != nil {
		slog.DebugContext(ctx, "page never went stable", "url", url, "err", err)
	}
	return nil
}

// find finds the first visible element among the candidate selectors. Each
// candidate gets a short wait so a slow page can still win, but a page that
// simply lacks the element fails in bounded time.
func (p *Page) find(ctx context.Context, selectors []string) (*rod.Element, string, error) {
	page := p.page.Context(ctx)
	for _, sel := range selectors {
		el, err := page.Timeout(probeTimeout).Element(sel)
		if err != nil {
			continue
		}
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		return el, sel, nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrNoSelectorMatch, selectors)
}

// Fill types the value into the first matching input among the candidate
// selectors, clearing whatever was there, and reports which selector won.
func (p *Page) Fill(ctx context.Context, selectors []string, value string) (string, error) {
	ctx, span := tracer.Start(ctx, "page:Fill")
	defer span.End()

	el, sel, err := p.find(ctx, selectors)
	if err != nil {
		span.SetStatus(codes.Error, "no input matched")
		return "", err
	}
	span.SetAttributes(attribute.String("selector", sel))

	if err := el.SelectAllText(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to select existing text")
		return sel, err
	}
	if err := el.Input(value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to type into input")
		return sel, err
	}
	return sel, nil
}

// Submit clicks the first matching button among the candidate selectors.
func (p *Page) Submit(ctx context.Context, selectors []string) (string, error) {
	ctx, span := tracer.Start(ctx, "page:Submit")
	defer span.End()

	el, sel, err := p.find(ctx, selectors)
	if err != nil {
		span.SetStatus(codes.Error, "no button matched")
		return "", err
	}
	span.SetAttributes(attribute.String("selector", sel))

	if err := el.Click("left", 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to click")
		return sel, err
	}

	page := p.page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		slog.DebugContext(ctx, "wait load after submit", "err", err)
	}
	err = page.Timeout(stableTimeout).WaitStable(time.Second)
	if err != nil {
		slog.DebugContext(ctx, "page never went stable after submit", "err", err)
	}
	return sel, nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// FrameHTML extracts the rendered document of the iframe matching the
// selector.
func (p *Page) FrameHTML(ctx context.Context, selector string) (string, error) {
	page := p.page.Context(ctx)
	el, err := page.Timeout(probeTimeout).Element(selector)
	if err != nil {
		return "", err
	}
	frame, err := el.Frame()
	if err != nil {
		return "", err
	}
	return frame.HTML()
}

// DismissPopups tries the usual close button patterns, best effort.
func (p *Page) DismissPopups(ctx context.Context) {
	page := p.page.Context(ctx)
	for _, sel := range popupCloseSelectors {
		el, err := page.Timeout(500 * time.Millisecond).Element(sel)
		if err != nil {
			continue
		}
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click("left", 1); err == nil {
			slog.DebugContext(ctx, "dismissed popup", "selector", sel)
			return
		}
	}
}

func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		err := p.page.Close()
		if p.owner != nil {
			ownerErr := p.owner.Close()
			if err == nil {
				err = ownerErr
			}
		}
		p.closeErr = err
	})
	return p.closeErr
}
