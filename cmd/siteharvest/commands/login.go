package commands

import (
	"os"
	"time"

	"siteharvest/lib/configutil"
	"siteharvest/lib/osutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Performs the configured login once and reports the outcome, without scraping.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			osutil.Fatal("failed to read config", err)
		}

		acquirer, err := newAcquirer(cfg.Login, cfg.Browser)
		if err != nil {
			osutil.Fatal("invalid login configuration", err)
		}

		t1 := time.Now()
		session, err := acquirer.Acquire(ctx, credentials(cfg.Login))
		if err != nil {
			osutil.Fatal("login failed", err)
		}
		defer session.Close()

		currentUrl, err := session.Driver().CurrentURL(ctx)
		if err != nil {
			osutil.Fatal("failed to read landing url", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Landing url", "Acquired at", "Took"})
		t.AppendRow(table.Row{
			currentUrl,
			session.AcquiredAt().Format(time.RFC3339),
			time.Since(t1).Round(time.Millisecond).String(),
		})
		t.Render()
	},
}
