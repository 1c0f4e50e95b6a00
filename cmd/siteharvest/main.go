package main

import (
	"context"
	"os"

	"siteharvest/cmd/siteharvest/commands"
	"siteharvest/lib/osutil"
	"siteharvest/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()

	// a missing telemetry.json5 just means no exporters
	t, err := telemetry.SetupFromEnv(ctx, "siteharvest")
	if err != nil && !os.IsNotExist(err) {
		osutil.Fatal("failed to initialize telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
