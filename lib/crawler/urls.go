package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// StripFragment returns the url without its #fragment, and the fragment
// itself.
func StripFragment(raw string) (stripped, fragment string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		before, after, _ := strings.Cut(raw, "#")
		return before, after
	}
	fragment = parsed.Fragment
	parsed.Fragment = ""
	return parsed.String(), fragment
}

// Scope decides which urls belong to the site being harvested.
type Scope struct {
	Root            string
	AllowSubdomains bool

	rootHost string
	rootSite string
}

func NewScope(root string, allowSubdomains bool) (Scope, error) {
	parsed, err := url.Parse(root)
	if err != nil {
		return Scope{}, fmt.Errorf("parsing root url: %w", err)
	}
	if parsed.Host == "" {
		return Scope{}, fmt.Errorf("root url %q has no host", root)
	}
	scope := Scope{
		Root:            root,
		AllowSubdomains: allowSubdomains,
		rootHost:        parsed.Hostname(),
	}
	if allowSubdomains {
		site, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
		if err != nil {
			return Scope{}, fmt.Errorf("deriving site of %q: %w", parsed.Hostname(), err)
		}
		scope.rootSite = site
	}
	return scope, nil
}

// Contains reports whether the url should be crawled. Without
// AllowSubdomains the url must extend the root url itself, matching the
// original prefix rule. With AllowSubdomains any host under the root's
// registrable domain qualifies.
func (s Scope) Contains(raw string) bool {
	if strings.HasPrefix(raw, s.Root) {
		return true
	}
	if !s.AllowSubdomains {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	if host == s.rootHost {
		return true
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return site == s.rootSite
}

// ResolveHref turns an href found on pageUrl into an absolute url.
// Fragment-only links resolve against the page itself.
func ResolveHref(pageUrl, href string) (string, error) {
	if strings.HasPrefix(href, "#") {
		stripped, _ := StripFragment(pageUrl)
		return stripped + href, nil
	}
	base, err := url.Parse(pageUrl)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
