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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := app.Run(ctx, config.ModeConversational, app.Deps{NewCapturer: mic.Open}, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
