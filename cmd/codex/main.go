// Command codex is Matthew's Codex: a question-answering assistant over a
// personal knowledge base.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driven/config/file"
	"github.com/adiirockstar/trial-matthew-schramm/internal/adapters/driving/cli"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := file.LoadDotEnv(file.DotEnvFiles()...); err != nil {
		logger.Warn("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, app{}, version)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
