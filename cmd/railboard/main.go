// ABOUTME: Command-line client for the railboard schedule service
// ABOUTME: Handles session lifecycle, schedule browsing, favorites, and live watch

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/railboard/internal/client"
	"github.com/2389/railboard/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _ _ _                         _
 _ __ __ _(_) | |__   ___   __ _ _ __ __| |
| '__/ _' | | | '_ \ / _ \ / _' | '__/ _' |
| | | (_| | | | |_) | (_) | (_| | | | (_| |
|_|  \__,_|_|_|_.__/ \___/ \__,_|_|  \__,_|
`

// getConfigPath returns the path to the railboard config file.
// Priority: RAILBOARD_CONFIG env var > XDG_CONFIG_HOME/railboard/config.yaml > ~/.config/railboard/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RAILBOARD_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "railboard", "config.yaml")
}

// loadConfig loads the config file, falling back to defaults rooted in
// the config directory when no file exists yet.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(filepath.Dir(path)), nil
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}
	if cmd == "version" {
		fmt.Println(version)
		return
	}
	if cmd == "init" {
		if err := runInit(); err != nil {
			color.Red("Error: %v", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	// The watch command needs the push channel regardless of config.
	if cmd == "watch" {
		cfg.Realtime.Enabled = true
	}

	c, err := client.New(cfg, setupLogger(cfg.Logging))
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	c.Start(ctx)

	switch cmd {
	case "login":
		err = cmdLogin(ctx, c, args)
	case "register":
		err = cmdRegister(ctx, c, args)
	case "logout":
		err = cmdLogout(ctx, c)
	case "status":
		err = cmdStatus(c)
	case "schedules":
		err = cmdSchedules(ctx, c, args)
	case "trains":
		err = cmdTrains(ctx, c)
	case "favorites":
		err = cmdFavorites(ctx, c, args)
	case "watch":
		err = cmdWatch(ctx, c)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: railboard <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  init                      Write a default config file")
	fmt.Println("  login                     Sign in and store the session")
	fmt.Println("  register                  Create an account and sign in")
	fmt.Println("  logout                    Sign out everywhere")
	fmt.Println("  status                    Show session status")
	fmt.Println("  schedules list            List schedules (supports filters)")
	fmt.Println("  schedules get <id>        Show one schedule")
	fmt.Println("  schedules create          Create a schedule")
	fmt.Println("  schedules update <id>     Update a schedule")
	fmt.Println("  schedules delete <id>     Delete a schedule")
	fmt.Println("  trains                    List train types")
	fmt.Println("  favorites list            List favorite schedules")
	fmt.Println("  favorites add <id>        Favorite a schedule")
	fmt.Println("  favorites remove <id>     Unfavorite a schedule")
	fmt.Println("  watch                     Stream live schedule events")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  RAILBOARD_CONFIG          Config file path (default: ~/.config/railboard/config.yaml)")
	fmt.Println()
}

func runInit() error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(`# railboard configuration
# Generated by railboard init

api:
  base_url: "%s"
  timeout: "15s"

realtime:
  enabled: true
  namespace: "%s"
  dial_timeout: "10s"

logging:
  level: "warn"
  format: "text"
`, config.DefaultBaseURL, config.DefaultNamespace)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", path)
	fmt.Println()
	fmt.Println("Next:")
	fmt.Println("  railboard login")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "color":
		handler = &colorHandler{
			level: level,
		}
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
