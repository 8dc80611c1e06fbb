// Package cli parses command-line arguments into an app configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ccmdi/blockkit/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is one parsed CLI run: the app config plus what to render.
type Invocation struct {
	Config *app.Config

	// Component selects the component to render; empty lists components.
	Component string

	// Doc is the hosting document's vault-relative path.
	Doc string

	// BlockPath points at a file holding the block source, one key=value
	// argument per line.
	BlockPath string

	// Expr is a single expression to evaluate against Doc's metadata
	// instead of rendering a component.
	Expr string
}

// Parse processes command-line arguments. It returns a populated
// Invocation, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("blockkit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
blockkit - render metadata-driven component blocks from the command line.

Usage:
  blockkit [options] [VAULT_PATH]

Arguments:
  VAULT_PATH
    Path to a directory of markdown documents with YAML front matter.

Options:
`)
		flagSet.PrintDefaults()
	}

	vaultFlag := flagSet.String("vault", "", "Path to the vault directory.")
	vFlag := flagSet.String("v", "", "Path to the vault directory (shorthand).")
	componentFlag := flagSet.String("component", "", "Component type to render. Empty lists available components.")
	docFlag := flagSet.String("doc", "", "Vault-relative path of the document hosting the block.")
	blockFlag := flagSet.String("block", "", "Path to a file with the block source (key=value per line).")
	evalFlag := flagSet.String("eval", "", "Expression to evaluate against the document's metadata.")
	manifestsFlag := flagSet.String("manifests-path", "", "Path to a directory with extra component manifests.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *vaultFlag != "" {
		path = *vaultFlag
	} else if *vFlag != "" {
		path = *vFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Vault path determined.", "path", path)

	if path == "" {
		slog.Debug("No vault path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *componentFlag != "" && *docFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "-doc is required when rendering a component"}
	}
	if *evalFlag != "" {
		if *componentFlag != "" {
			return nil, false, &ExitError{Code: 2, Message: "-eval and -component are mutually exclusive"}
		}
		if *docFlag == "" {
			return nil, false, &ExitError{Code: 2, Message: "-doc is required when evaluating an expression"}
		}
	}

	config, err := app.NewConfig(app.Config{
		VaultPath:     path,
		ManifestsPath: *manifestsFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return &Invocation{
		Config:    config,
		Component: *componentFlag,
		Doc:       *docFlag,
		BlockPath: *blockFlag,
		Expr:      *evalFlag,
	}, false, nil
}
