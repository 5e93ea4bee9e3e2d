package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/nodeflow/internal/app"
	"github.com/vk/nodeflow/internal/model"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvToken     = "NODEFLOW_TOKEN"
	EnvAPIURL    = "NODEFLOW_API_URL"
	EnvSocketURL = "NODEFLOW_SOCKET_URL"
	EnvConfig    = "NODEFLOW_CONFIG"
	EnvRole      = "NODEFLOW_ROLE"
)

const defaultEnvFile = ".env"

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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags may appear before or after the positional arguments.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("nodeflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
nodeflow - Headless driver for workflow recipes.

Usage:
  nodeflow [options] COMMAND [RECIPE_PATH]

Commands:
  %s

Arguments:
  RECIPE_PATH
    Path to a recipe JSON document.

Environment:
  %s, %s, %s, %s and %s are used when the matching
  flag is not set. They may also come from the file named by --env-file.

Options:
`, strings.Join(app.Commands, ", "), EnvToken, EnvAPIURL, EnvSocketURL, EnvConfig, EnvRole)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Comma-separated HCL files or directories with settings and node types.")
	recipeFlag := flagSet.String("recipe", "", "Path to the recipe JSON document.")
	apiURLFlag := flagSet.String("api-url", "", "Base URL of the recipe API.")
	socketURLFlag := flagSet.String("socket-url", "", "URL of the live channel endpoint.")
	tokenFlag := flagSet.String("token", "", "Auth token for the API and the live channel.")
	providerFlag := flagSet.String("provider", "", "Auth provider sent with the live channel handshake.")
	roleFlag := flagSet.String("role", "", "Caller role. Options: 'editor', 'viewer', 'guest'.")
	selectFlag := flagSet.String("select", "", "Comma-separated node ids to estimate. Defaults to every priced node.")
	runsFlag := flagSet.Int("runs", 1, "Number of runs to estimate.")
	envFileFlag := flagSet.String("env-file", "", "Load environment variables from this file (default .env, if present).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the /health and /metrics server during watch. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	var positional []string
	rest := args
	for {
		if err := flagSet.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, true, nil
			}
			return nil, false, usageError("%s", err.Error())
		}
		if flagSet.NArg() == 0 {
			break
		}
		positional = append(positional, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}
	slog.Debug("Arguments parsed successfully.", "positional", positional)

	if len(positional) == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if len(positional) > 2 {
		return nil, false, usageError("too many arguments: %s", strings.Join(positional[2:], " "))
	}
	command := positional[0]

	recipePath := *recipeFlag
	if recipePath == "" && len(positional) == 2 {
		recipePath = positional[1]
	}

	if err := loadEnvFile(*envFileFlag); err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	var role model.Role
	if r := firstNonEmpty(*roleFlag, os.Getenv(EnvRole)); r != "" {
		parsed, err := model.ParseRole(strings.ToLower(r))
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		role = parsed
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:         command,
		RecipePath:      recipePath,
		ConfigPaths:     splitList(firstNonEmpty(*configFlag, os.Getenv(EnvConfig))),
		APIURL:          firstNonEmpty(*apiURLFlag, os.Getenv(EnvAPIURL)),
		SocketURL:       firstNonEmpty(*socketURLFlag, os.Getenv(EnvSocketURL)),
		Provider:        *providerFlag,
		Token:           firstNonEmpty(*tokenFlag, os.Getenv(EnvToken)),
		Role:            role,
		Selection:       splitList(*selectFlag),
		Runs:            *runsFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command, "recipe", config.RecipePath)
	return config, false, nil
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. With no path, .env is loaded when it exists.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Environment file loaded.", "path", path)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
