package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/db"
	"github.com/krisyotam/krisyotam.com-sub010/internal/docstore"
	"github.com/krisyotam/krisyotam.com-sub010/internal/logging"
	"github.com/krisyotam/krisyotam.com-sub010/internal/mcp"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// HomeEnv overrides the default home directory (~/.site).
const HomeEnv = "SITE_HOME"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"list": true, "get": true, "search": true, "types": true,
	"tags": true, "categories": true, "sequence": true, "feed": true,
	"export": true, "import": true,
	"help": true,
}

// siteEnv is everything a command needs: config, logger, and the
// repository over the configured backend.
type siteEnv struct {
	home  string
	cfg   *config.Config
	log   *zap.Logger
	store ops.Store
	repo  *ops.Repository
	db    *sql.DB // nil unless the backend is sqlite
}

// ExportsDir is the default directory for export and import files.
func (e *siteEnv) ExportsDir() string {
	return ops.DefaultExportsDir(e.home)
}

// Close releases the database handle and flushes the logger.
func (e *siteEnv) Close() error {
	_ = e.log.Sync()
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// defaultHome returns $SITE_HOME or ~/.site.
func defaultHome() (string, error) {
	if h := os.Getenv(HomeEnv); h != "" {
		return h, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".site"), nil
}

// openEnv loads configuration for home (and any checkout config above the
// working directory) and opens the configured backend.
func openEnv(home string) (*siteEnv, error) {
	if home == "" {
		var err error
		if home, err = defaultHome(); err != nil {
			return nil, err
		}
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(home, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown entries in disabled_tools", zap.Strings("tools", unknown))
	}

	env := &siteEnv{home: home, cfg: cfg, log: log}
	switch cfg.Backend {
	case config.BackendSQLite:
		database, err := db.Init(home)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db.ConfigurePool(database, cfg)
		env.db = database
		env.store = db.NewStore(database)
	case config.BackendDocuments:
		dir := cfg.ResolveDocumentsDir(home)
		store, err := docstore.New(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open documents: %w", err)
		}
		if err := os.MkdirAll(env.ExportsDir(), 0700); err != nil {
			return nil, fmt.Errorf("failed to create exports directory: %w", err)
		}
		env.store = store
	}

	env.repo = ops.New(env.store, ops.Options{Logger: log, Config: cfg})
	log.Debug("backend opened", zap.String("backend", cfg.Backend), zap.String("home", home))
	return env, nil
}

// commandArg returns the first argument that is not the global --home flag
// or its value.
func commandArg(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--home" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "--home=") {
			continue
		}
		return arg
	}
	return ""
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	arg := commandArg(args)
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(arg)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(arg string) bool {
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	return isCharDevice(os.Stdin)
}

// isCharDevice reports whether f is a character device. A file that cannot
// be stat'ed is not.
func isCharDevice(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _ _
   ___(_) |_ ___
  (_-<| |  _/ -_)
  /__/|_|\__\___|

  Site content repository

  Usage: site <command> [options]
         site --help

  MCP server mode requires piped input.`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func main() {
	args := os.Args[1:]

	// No args + interactive terminal → show banner and exit
	if len(args) == 0 && isTerminal() {
		printBanner()
		return
	}

	if isCLIMode(args) {
		app := newCLIApp(openEnv, os.Stdout)
		if err := app.Run(os.Args); err != nil {
			fail(err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(args) > 0 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", commandArg(args))
		fmt.Fprintf(os.Stderr, "Run 'site --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	env, err := openEnv(homeArg(args))
	if err != nil {
		fail(err)
	}
	defer env.Close()

	if err := mcp.Run(env.repo, env.cfg, env.log, Version); err != nil {
		fail(err)
	}
}

// homeArg returns the value of a --home flag in args, if any.
func homeArg(args []string) string {
	for i, arg := range args {
		if arg == "--home" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--home="); ok {
			return v
		}
	}
	return ""
}
