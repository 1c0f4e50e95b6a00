package commands

import (
	"context"
	"log/slog"
	"time"

	"siteharvest/lib/browser"
	"siteharvest/lib/configutil"
	"siteharvest/lib/crawler"
	"siteharvest/lib/crawlstore"
	"siteharvest/lib/osutil"
	"siteharvest/lib/restyutil"
	"siteharvest/lib/sqliteutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeDb *string
var scrapeDebugHttp *bool

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "harvest.db", "The database to record crawl state and page metadata in.")
	scrapeDebugHttp = scrapeCmd.Flags().Bool("debug-http", false, "Dump asset request/response pairs to .dev/resty/harvest.")
	rootCmd.AddCommand(scrapeCmd)
}

// newPage opens a browser page, authenticating first when a login url is
// configured.
func newPage(ctx context.Context, cfg Config) (*browser.Page, func(), error) {
	if cfg.Login.Url == "" {
		slog.InfoContext(ctx, "no login url configured, harvesting unauthenticated")
		b, err := browser.Launch(ctx, cfg.Browser)
		if err != nil {
			return nil, nil, err
		}
		page, err := b.Page(ctx)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		return page, func() { page.Close() }, nil
	}

	acquirer, err := newAcquirer(cfg.Login, cfg.Browser)
	if err != nil {
		return nil, nil, err
	}
	session, err := acquirer.Acquire(ctx, credentials(cfg.Login))
	if err != nil {
		return nil, nil, err
	}
	return session.Driver().(*browser.Page), func() { session.Close() }, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/harvest.db>]",
	Short: "Logs in and recursively scrapes the configured sites to disk.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			osutil.Fatal("failed to read config", err)
		}

		page, release, err := newPage(ctx, cfg)
		if err != nil {
			osutil.Fatal("failed to open authenticated page", err)
		}
		defer release()

		database, err := sqliteutil.OpenDB(crawlstore.Schema, *scrapeDb)
		if err != nil {
			osutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := crawlstore.New(database)

		var dumps restyutil.InstrumentOutput
		if *scrapeDebugHttp {
			dumps = restyutil.NewFilesystemOutput(".dev/resty/harvest")
		}
		assets, err := crawler.NewAssetClient(dumps)
		if err != nil {
			osutil.Fatal("failed to initialize asset client", err)
		}

		c, err := crawler.New(page, assets, store, cfg.crawlOptions())
		if err != nil {
			osutil.Fatal("failed to initialize crawler", err)
		}

		t1 := time.Now()
		err = c.Run(ctx, cfg.Sites)
		if err != nil {
			osutil.Fatal("harvest failed", err)
		}
		t2 := time.Now()

		slog.Info("harvest time", "seconds", t2.Sub(t1).Seconds())

		pages, err := store.Pages(ctx)
		if err != nil {
			osutil.Fatal("failed to list scraped pages", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"Url", "File", "Language", "Last updated"})
		for _, page := range pages {
			t.AppendRow(table.Row{page.Url, page.FileName, page.Language, page.LastUpdated})
		}
		t.Render()
	},
}
