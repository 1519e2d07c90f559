package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	root := cli.NewRootCmd(app.Options{})

	err := root.ExecuteContext(ctx)
	if err == nil {
		return domain.ExitPass
	}

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "error:", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return domain.ExitFatal
}
