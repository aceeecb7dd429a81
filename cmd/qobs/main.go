package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/qobs/internal/cli"
	"github.com/theapemachine/qobs/internal/telemetry"
)

func main() {
	opts, err := cli.ParseOptions(os.Args[1:])
	if err != nil {
		if cli.IsHelp(err) {
			fmt.Println(err)
			return
		}
		log.Fatal("invalid arguments", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "qobs")
	if err != nil {
		log.Warn("tracing disabled", "err", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("flush traces", "err", err)
		}
	}()

	if err := cli.Run(ctx, opts, os.Stdout); err != nil {
		log.Error("qobs failed", "err", err)
		stop()
		os.Exit(1)
	}
}
