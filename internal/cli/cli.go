package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/watch"
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

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pipegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pipegrid - a declarative build pipeline for static front-end projects.

Usage:
  pipegrid [options] [TASK]

Arguments:
  TASK
    Name of the task to run. Defaults to the buildfile's default task.

Options:
`)
		flagSet.PrintDefaults()
	}

	fileFlag := flagSet.String("file", app.DefaultBuildfile, "Path to the buildfile or a directory of .hcl files, relative to --root.")
	fFlag := flagSet.String("f", "", "Path to the buildfile (shorthand).")
	rootFlag := flagSet.String("root", ".", "Project root. Globs, layout paths and actions resolve against it.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkers, "Maximum number of tasks running at once.")
	debounceFlag := flagSet.Duration("debounce", watch.DefaultDebounce, "Quiet period before a watched change triggers a rebuild.")
	envFileFlag := flagSet.String("env-file", "", "Optional dotenv file exposed to the buildfile as env.*.")
	listenFlag := flagSet.String("listen", "", "Override the dev server address from the buildfile.")
	beepFlag := flagSet.Bool("beep", false, "Ring the terminal bell when a task fails.")
	listFlag := flagSet.Bool("list", false, "List the buildfile's tasks and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected at most one task, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))
	}

	buildfile := *fileFlag
	if *fFlag != "" {
		buildfile = *fFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if *workersFlag < 1 {
		return nil, false, usageError("invalid workers: must be at least 1, got %d", *workersFlag)
	}
	if *debounceFlag < 0 {
		return nil, false, usageError("invalid debounce: must not be negative, got %s", *debounceFlag)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		BuildfilePath: buildfile,
		Root:          *rootFlag,
		Target:        flagSet.Arg(0),
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		WorkerCount:   *workersFlag,
		Debounce:      *debounceFlag,
		EnvFile:       *envFileFlag,
		Listen:        *listenFlag,
		Beep:          *beepFlag,
		List:          *listFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
