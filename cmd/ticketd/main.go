// ABOUTME: Entry point for the ticketd HTTP server
// ABOUTME: Subcommands serve, init, health, ready and token share one config lookup

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/ticketd/internal/auth"
	"github.com/2389/ticketd/internal/config"
	"github.com/2389/ticketd/internal/reqlog"
	"github.com/2389/ticketd/internal/server"
	"github.com/2389/ticketd/internal/store"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
  _   _      _        _      _
 | |_(_) ___| | _____| |_ __| |
 | __| |/ __| |/ / _ \ __/ _' |
 | |_| | (__|   <  __/ || (_| |
  \__|_|\___|_|\_\___|\__\__,_|
`

// getConfigPath returns the path to the ticketd config file.
// Priority: --config flag > TICKETD_CONFIG env var > XDG_CONFIG_HOME/ticketd/ticketd.yaml > ~/.config/ticketd/ticketd.yaml
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("TICKETD_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "ticketd.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ticketd", "ticketd.yaml")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ticketd <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                  Start the HTTP server")
	fmt.Fprintln(w, "  init                   Create a new config file interactively")
	fmt.Fprintln(w, "  health                 Check server liveness")
	fmt.Fprintln(w, "  ready                  Print the readiness report")
	fmt.Fprintln(w, "  token --user ID        Print an identity token for a subject")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command accepts --config PATH.")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(ctx, args)
	case "init":
		err = runInit(args, os.Stdin, os.Stdout)
	case "health":
		err = runHealth(ctx, args, os.Stdout)
	case "ready":
		err = runReady(ctx, args, os.Stdout)
	case "token":
		err = runToken(args, os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set with the shared --config flag bound to configFlag.
func newFlagSet(name string, configFlag *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(configFlag, "config", "c", "", "path to config file (.yaml, .toml, .json or .jsonc)")
	return fs
}

// loadConfig resolves and loads the config, falling back to defaults when
// the file does not exist.
func loadConfig(configFlag string) (*config.Config, string, bool, error) {
	path := getConfigPath(configFlag)
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, path, false, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, found, nil
}

func runServe(ctx context.Context, args []string) error {
	var configFlag string
	fs := newFlagSet("serve", &configFlag)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, configPath, found, err := loadConfig(configFlag)
	if err != nil {
		return err
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s", configPath)
	if !found {
		yellow.Print(" (not found, using defaults)")
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Login:     %s\n", cfg.Auth.DemoUsername)
	if cfg.Tickets.OwnerScoped {
		green.Print("    ▶ ")
		fmt.Println("Tickets:   owner scoped")
	}
	fmt.Println()

	logger.Info("starting ticketd",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"owner_scoped", cfg.Tickets.OwnerScoped,
	)

	tickets := store.NewTickets(store.Options{OwnerScoped: cfg.Tickets.OwnerScoped})
	reqLogger := reqlog.New(logger.With("component", "reqlog"), cfg.Logging.RequestQueue)
	srv := server.New(cfg, tickets, reqLogger, logger)

	return srv.Run(ctx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = newColorHandler(out, level)
	}

	return slog.New(handler)
}

func runHealth(ctx context.Context, args []string, out io.Writer) error {
	if _, err := getEndpoint(ctx, args, "health", "/health"); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintln(out, "healthy")
	return nil
}

func runReady(ctx context.Context, args []string, out io.Writer) error {
	body, err := getEndpoint(ctx, args, "ready", "/health/ready")
	if err != nil {
		return fmt.Errorf("ready check failed: %w", err)
	}
	fmt.Fprintln(out, string(body))
	return nil
}

// getEndpoint GETs path on the configured server and returns the body of a
// 200 response.
func getEndpoint(ctx context.Context, args []string, name, path string) ([]byte, error) {
	var configFlag, addr string
	fs := newFlagSet(name, &configFlag)
	fs.StringVar(&addr, "addr", "", "server address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if addr == "" {
		cfg, _, _, err := loadConfig(configFlag)
		if err != nil {
			return nil, err
		}
		addr = cfg.Server.HTTPAddr
	}

	url := fmt.Sprintf("http://%s%s", addr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return body, nil
}

// runToken prints a token that the server will resolve to the given subject.
// Useful with curl: curl -b "auth-token=$(ticketd token --user 7)" ...
func runToken(args []string, out io.Writer) error {
	var configFlag string
	var user uint64
	fs := newFlagSet("token", &configFlag)
	fs.Uint64VarP(&user, "user", "u", 0, "subject id to issue the token for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("user") {
		return fmt.Errorf("--user flag is required")
	}

	fmt.Fprintln(out, auth.GenerateToken(user))
	return nil
}

func runInit(args []string, in io.Reader, out io.Writer) error {
	var configFlag string
	fs := newFlagSet("init", &configFlag)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "ticketd configuration setup")
	fmt.Fprintln(out, "===========================")
	fmt.Fprintln(out)

	cfg := config.Default()

	outputFile := prompt(reader, out, "Config file path", getConfigPath(configFlag))

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, out, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", cfg.Server.HTTPAddr)

	fmt.Fprintln(out, "\n--- Demo Login ---")
	cfg.Auth.DemoUsername = prompt(reader, out, "Username", cfg.Auth.DemoUsername)
	cfg.Auth.DemoPassword = prompt(reader, out, "Password", cfg.Auth.DemoPassword)
	subject := prompt(reader, out, "Subject id", strconv.FormatUint(cfg.Auth.DemoSubjectID, 10))
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return fmt.Errorf("subject id %q: %w", subject, err)
	}
	cfg.Auth.DemoSubjectID = id

	fmt.Fprintln(out, "\n--- Tickets ---")
	cfg.Tickets.OwnerScoped = isYes(prompt(reader, out, "Restrict tickets to their owner?", "no"))

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if err := config.WriteYAML(outputFile, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintf(out, "  ticketd serve --config %s\n", outputFile)

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
