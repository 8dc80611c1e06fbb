package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ccmdi/blockkit/internal/app"
	"github.com/ccmdi/blockkit/internal/cli"
)

// main is the entrypoint for the blockkit command.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) (err error) {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on handler/manifest parity errors; recover here to
	// provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	source := ""
	if inv.BlockPath != "" {
		raw, readErr := os.ReadFile(inv.BlockPath)
		if readErr != nil {
			return fmt.Errorf("reading block source: %w", readErr)
		}
		source = string(raw)
	}

	a, err := app.NewApp(outW, inv.Config)
	if err != nil {
		return err
	}
	defer a.Close()

	if inv.Expr != "" {
		return a.Eval(inv.Expr, inv.Doc)
	}
	return a.Run(context.Background(), inv.Component, inv.Doc, source)
}
