package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"siteharvest/lib/authflow"
	"siteharvest/lib/browser"
	"siteharvest/lib/crawler"
)

type LoginConfig struct {
	Url            string `json:"url"`
	UsernameField  string `json:"username_field,omitempty"`
	PasswordField  string `json:"password_field,omitempty"`
	TotpField      string `json:"totp_field,omitempty"`
	SubmitSelector string `json:"submit_selector,omitempty"`
	ConfirmTimeout int    `json:"confirm_timeout_seconds,omitempty"`

	// fallbacks for when the SCRAPER_* environment variables are unset,
	// only sensible in throwaway local setups
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	TotpSecret string `json:"totp_secret,omitempty"`
}

type Config struct {
	Login   LoginConfig     `json:"login"`
	Sites   []crawler.Site  `json:"sites"`
	Crawl   crawler.Options `json:"crawl"`
	Browser browser.Options `json:"browser,omitempty"`

	RenderDelaySeconds     int `json:"render_delay_seconds,omitempty"`
	PolitenessDelaySeconds int `json:"politeness_delay_seconds,omitempty"`
}

func (c Config) crawlOptions() crawler.Options {
	opts := c.Crawl
	if c.RenderDelaySeconds > 0 {
		opts.RenderDelay = time.Duration(c.RenderDelaySeconds) * time.Second
	}
	if c.PolitenessDelaySeconds > 0 {
		opts.PolitenessDelay = time.Duration(c.PolitenessDelaySeconds) * time.Second
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./scraped-data"
	}
	return opts
}

// credentials resolves the login secrets, environment first then config
// file fallback.
func credentials(cfg LoginConfig) authflow.Credentials {
	creds := authflow.Credentials{
		Username: os.Getenv("SCRAPER_USERNAME"),
		Password: os.Getenv("SCRAPER_PASSWORD"),
		TotpSeed: os.Getenv("SCRAPER_TOTP_SECRET"),
	}
	if creds.Username == "" {
		creds.Username = cfg.Username
	}
	if creds.Password == "" {
		creds.Password = cfg.Password
	}
	if creds.TotpSeed == "" {
		creds.TotpSeed = cfg.TotpSecret
	}
	return creds
}

func newAcquirer(cfg LoginConfig, browserOpts browser.Options) (*authflow.Acquirer, error) {
	if cfg.Url == "" {
		return nil, fmt.Errorf("login url is not configured")
	}

	launch := func(ctx context.Context) (authflow.Driver, error) {
		b, err := browser.Launch(ctx, browserOpts)
		if err != nil {
			return nil, err
		}
		page, err := b.Page(ctx)
		if err != nil {
			b.Close()
			return nil, err
		}
		return page, nil
	}

	opts := authflow.Options{
		LoginUrl:          cfg.Url,
		UsernameSelectors: authflow.SelectorsForField(cfg.UsernameField, authflow.DefaultUsernameSelectors),
		PasswordSelectors: authflow.SelectorsForField(cfg.PasswordField, authflow.DefaultPasswordSelectors),
		TotpSelectors:     authflow.SelectorsForField(cfg.TotpField, authflow.DefaultTotpSelectors),
		ConfirmTimeout:    time.Duration(cfg.ConfirmTimeout) * time.Second,
	}
	if cfg.SubmitSelector != "" {
		opts.SubmitSelectors = []string{cfg.SubmitSelector}
	}
	return authflow.NewAcquirer(launch, opts), nil
}
