package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clifrostbench "github.com/frostbench/frostbench/internal/cli/frostbench"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := clifrostbench.Run(ctx, os.Args[1:], clifrostbench.Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	os.Exit(code)
}
