package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stfuassistant/stfu/internal/app"
	"github.com/stfuassistant/stfu/internal/audio/mic"
	"github.com/stfuassistant/stfu/internal/config"
)

func main() {
	// Interrupt stops the recording loop; the speech log is still saved
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := app.Run(ctx, config.ModePolling, app.Deps{NewCapturer: mic.Open}, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
