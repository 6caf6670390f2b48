package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/discobrowse/internal/analytics"
	"github.com/studiowebux/discobrowse/internal/catalog"
	"github.com/studiowebux/discobrowse/internal/cli"
	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/config"
	"github.com/studiowebux/discobrowse/internal/converter"
	"github.com/studiowebux/discobrowse/internal/filter"
	"github.com/studiowebux/discobrowse/internal/history"
	"github.com/studiowebux/discobrowse/internal/keybinds"
	"github.com/studiowebux/discobrowse/internal/logging"
	"github.com/studiowebux/discobrowse/internal/server"
	"github.com/studiowebux/discobrowse/internal/tui"
	appversion "github.com/studiowebux/discobrowse/internal/version"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command shares once configuration is loaded
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	logCloser io.Closer
	history   *history.Manager // nil when history is disabled
}

var current app

var rootCmd = &cobra.Command{
	Use:   "discobrowse",
	Short: "Browse web API discovery metadata",
	Long: `discobrowse browses API and endpoint descriptors served by a metadata server.

Run without arguments to start the TUI. Use 'serve' to run the metadata
server over a catalog directory (or the built-in sample).

Examples:
  discobrowse                                   # Start interactive TUI
  discobrowse serve --catalog ~/apis --watch    # Serve a catalog directory
  discobrowse serve --tail                      # Serve the sample, printing requests
  discobrowse show api adexperiencereport       # Print an API descriptor
  discobrowse show endpoint sites.get --api adexperiencereport -o json
  discobrowse list adexperiencereport --match list
  discobrowse import-openapi petstore.yaml -o ~/apis/petstore.yaml`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over /api_detail and /endpoint_detail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Select an API or endpoint and print its descriptor",
}

var showAPICmd = &cobra.Command{
	Use:   "api <api-id>",
	Short: "Print the descriptor of an API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := showOptions(cmd.Context())
		if err != nil {
			return err
		}
		return cli.ShowAPI(cmd.Context(), args[0], opts)
	},
}

var showEndpointCmd = &cobra.Command{
	Use:   "endpoint [method-name]",
	Short: "Print the descriptor of an endpoint",
	Long: `Print the descriptor of an endpoint.

The method name is either a qualified id (adexperiencereport.sites.get) or a
bare name scoped with --api. Without a name, a picker lists the endpoints of --api.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		opts, err := showOptions(cmd.Context())
		if err != nil {
			return err
		}
		return cli.ShowEndpoint(cmd.Context(), name, flagAPI, opts)
	},
}

var listCmd = &cobra.Command{
	Use:   "list [api-id]",
	Short: "List APIs, or the endpoints of an API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiID := ""
		if len(args) > 0 {
			apiID = args[0]
		}
		return cli.List(cmd.Context(), apiID, flagMatch, cliOptions())
	},
}

var importOpenAPICmd = &cobra.Command{
	Use:   "import-openapi <spec-file-or-url>",
	Short: "Convert an OpenAPI 3 document into a catalog file",
	Long: `Convert an OpenAPI 3 document into a catalog file.

Supports both local files and remote URLs. Writes to stdout unless -o is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return converter.ImportOpenAPI(converter.OpenAPIOptions{
			SpecPath: args[0],
			Output:   importOutput,
			APIID:    importAPIID,
			Format:   importFormat,
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd.Context())
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.history == nil {
			return fmt.Errorf("history is disabled")
		}
		if err := current.history.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, optionally checking for a newer release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("discobrowse %s\n", version)
		if !flagCheck {
			return nil
		}
		result, err := appversion.Check(cmd.Context(), appversion.Options{Current: version})
		if err != nil {
			return fmt.Errorf("update check failed: %w", err)
		}
		if result.Available {
			fmt.Printf("A newer version is available: %s\n%s\n", result.Latest, result.URL)
		} else {
			fmt.Println("You are running the latest version")
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats [api-id]",
	Short: "Summarize selections per API, or per endpoint of an API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.history == nil {
			return fmt.Errorf("history is disabled")
		}
		apiID := ""
		if len(args) > 0 {
			apiID = args[0]
		}
		stats := analytics.NewManager(current.history, 0)
		return cli.Stats(cmd.Context(), stats, apiID, cliOptions())
	},
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage saved JMESPath expressions",
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add <expression>",
	Short: "Save a JMESPath expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookmarks, err := bookmarkManager()
		if err != nil {
			return err
		}
		saved, err := bookmarks.Save(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if saved {
			fmt.Println("Bookmark saved")
		} else {
			fmt.Println("Bookmark already exists")
		}
		return nil
	},
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List saved expressions, optionally matching a substring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookmarks, err := bookmarkManager()
		if err != nil {
			return err
		}
		search := ""
		if len(args) > 0 {
			search = args[0]
		}
		list, err := bookmarks.Search(cmd.Context(), search)
		if err != nil {
			return err
		}
		for _, b := range list {
			fmt.Printf("%4d  %s\n", b.ID, b.Expression)
		}
		return nil
	},
}

var bookmarkRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid bookmark id %q", args[0])
		}
		bookmarks, err := bookmarkManager()
		if err != nil {
			return err
		}
		return bookmarks.Delete(cmd.Context(), id)
	},
}

// Global flags
var (
	flagConfig    string
	flagServer    string
	flagTimeout   time.Duration
	flagDebug     bool
	flagNoHistory bool
)

// Flags for serve
var (
	flagListen  string
	flagCatalog string
	flagWatch   bool
	flagTail    bool
)

// Flags for show/list
var (
	flagOutput   string
	flagFilter   string
	flagQuery    string
	flagAPI      string
	flagMatch    string
	flagBookmark int
)

// Flags for import-openapi
var (
	importOutput string
	importAPIID  string
	importFormat string
)

var historyLimit int

var flagCheck bool

func init() {
	// Hooks are assigned here since setup refers back to the commands
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		teardown()
	}

	// Root command flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.discobrowse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Metadata server base URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Metadata request timeout (0 means none)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug logging with source locations")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record selections")

	// serve flags
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (default 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&flagCatalog, "catalog", "", "Catalog directory (default: built-in sample)")
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "Reload the catalog when its files change")
	serveCmd.Flags().BoolVar(&flagTail, "tail", false, "Print each served request to stdout")

	// show/list flags
	for _, c := range []*cobra.Command{showAPICmd, showEndpointCmd, listCmd, historyStatsCmd} {
		c.Flags().StringVarP(&flagOutput, "output", "o", "text", "Output format (json/yaml/text)")
	}
	for _, c := range []*cobra.Command{showAPICmd, showEndpointCmd} {
		c.Flags().StringVar(&flagFilter, "filter", "", "JMESPath filter applied to the descriptor")
		c.Flags().StringVar(&flagQuery, "query", "", "JMESPath query applied after the filter")
		c.Flags().IntVar(&flagBookmark, "bookmark", 0, "Use a saved expression (see 'bookmark list') as the query")
	}
	showEndpointCmd.Flags().StringVar(&flagAPI, "api", "", "Select this API first and scope the method name to it")
	listCmd.Flags().StringVar(&flagMatch, "match", "", "Fuzzy pattern narrowing the rows")

	// import-openapi flags
	importOpenAPICmd.Flags().StringVarP(&importOutput, "output", "o", "", "Output file (default stdout)")
	importOpenAPICmd.Flags().StringVar(&importAPIID, "id", "", "Catalog id (default derived from info.title)")
	importOpenAPICmd.Flags().StringVarP(&importFormat, "format", "f", "yaml", "Output format (yaml/json)")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of selections to show")
	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "Check for a newer release")

	// Add subcommands
	showCmd.AddCommand(showAPICmd, showEndpointCmd)
	historyCmd.AddCommand(historyClearCmd, historyStatsCmd)
	bookmarkCmd.AddCommand(bookmarkAddCmd, bookmarkListCmd, bookmarkRemoveCmd)
	rootCmd.AddCommand(serveCmd, showCmd, listCmd, importOpenAPICmd, historyCmd, bookmarkCmd, versionCmd)
}

// setup loads configuration, applies flag overrides and opens the log and
// history stores
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	path := flagConfig
	if path == "" {
		path = config.ConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if flagServer != "" {
		cfg.ServerURL = flagServer
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagCatalog != "" {
		dir, err := config.ExpandPath(flagCatalog)
		if err != nil {
			return err
		}
		cfg.CatalogDir = dir
	}
	if flagWatch {
		cfg.Watch = true
	}
	if flagNoHistory {
		cfg.HistoryEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, closer, err := logging.InitLogger(logging.Options{
		Path:   config.LogFile,
		Level:  level,
		Debug:  flagDebug,
		Stderr: cmd == serveCmd,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	current = app{cfg: cfg, logger: logger, logCloser: closer}

	if cfg.HistoryEnabled && needsHistory(cmd) {
		mgr, err := history.NewManager(config.DatabasePath)
		if err != nil {
			// History is optional; keep browsing without it
			logger.Warn("selection history unavailable", "error", err)
		} else {
			current.history = mgr
		}
	}
	return nil
}

// needsHistory reports whether cmd records or reads selections
func needsHistory(cmd *cobra.Command) bool {
	switch cmd {
	case rootCmd, showAPICmd, showEndpointCmd, historyCmd, historyClearCmd, historyStatsCmd,
		bookmarkAddCmd, bookmarkListCmd, bookmarkRemoveCmd:
		return true
	}
	return false
}

func teardown() {
	if current.history != nil {
		if err := current.history.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing history database: %v\n", err)
		}
	}
	if current.logCloser != nil {
		current.logCloser.Close()
	}
}

// cliOptions builds the options shared by show and list
func cliOptions() cli.Options {
	opts := cli.Options{
		ServerURL:    current.cfg.ServerURL,
		Timeout:      current.cfg.Timeout,
		OutputFormat: flagOutput,
		Filter:       flagFilter,
		Query:        flagQuery,
		Logger:       current.logger,
	}
	if current.history != nil {
		opts.Recorder = current.history
	}
	return opts
}

// showOptions resolves --bookmark into the query
func showOptions(ctx context.Context) (cli.Options, error) {
	opts := cliOptions()
	if flagBookmark == 0 {
		return opts, nil
	}
	if flagQuery != "" {
		return opts, fmt.Errorf("--bookmark and --query are mutually exclusive")
	}
	bookmarks, err := bookmarkManager()
	if err != nil {
		return opts, err
	}
	b, err := bookmarks.Get(ctx, flagBookmark)
	if err != nil {
		return opts, err
	}
	opts.Query = b.Expression
	return opts, nil
}

// bookmarkManager stores bookmarks next to the selection history
func bookmarkManager() (*filter.BookmarkManager, error) {
	if current.history == nil {
		return nil, fmt.Errorf("bookmarks are stored in the history database, which is disabled")
	}
	return filter.NewBookmarkManager(current.history.DB()), nil
}

// runTUI starts the interactive TUI
func runTUI() error {
	c, err := client.New(current.cfg.ServerURL, client.Options{
		Timeout: current.cfg.Timeout,
		Logger:  current.logger,
	})
	if err != nil {
		return err
	}

	keys, err := keybinds.LoadOrDefault(config.KeybindsFile)
	if err != nil {
		return fmt.Errorf("failed to load keybinds: %w", err)
	}

	opts := tui.Options{Backend: c, Keybinds: keys, Logger: current.logger}
	if current.history != nil {
		opts.Recorder = current.history
		opts.Recent = current.history
	}
	return tui.Run(opts)
}

// runServe serves the catalog until interrupted
func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := current.cfg
	logger := current.logger

	cat, err := catalog.Open(ctx, catalog.Options{Dir: cfg.CatalogDir, Logger: logger})
	if err != nil {
		return err
	}

	srv := server.New(cat, server.Options{Addr: cfg.Listen, Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if flagTail {
		g.Go(func() error {
			return srv.Tail(gctx, 0, func(entry server.RequestLog) {
				printRequest(os.Stdout, entry)
			})
		})
	}
	if cfg.Watch {
		g.Go(func() error {
			return cat.Watch(gctx, func(err error) {
				if err == nil {
					logger.Info("catalog reloaded", "apis", cat.Len())
				}
			})
		})
	}
	return g.Wait()
}

// printRequest writes one line per served request
func printRequest(w io.Writer, entry server.RequestLog) {
	target := entry.Path
	if entry.Query != "" {
		target += "?" + entry.Query
	}
	fmt.Fprintf(w, "%s  %-6s %d  %-60s  %s\n",
		entry.Timestamp.Local().Format("15:04:05"), entry.Method, entry.Status, target, entry.Duration.Round(time.Microsecond))
}

// runHistory prints the most recent selections, newest first
func runHistory(ctx context.Context) error {
	if current.history == nil {
		return fmt.Errorf("history is disabled")
	}

	selections, err := current.history.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	total, err := current.history.GetCount(ctx)
	if err != nil {
		return err
	}

	for _, s := range selections {
		target := s.APIID
		if s.Kind == history.KindEndpoint {
			target = fmt.Sprintf("%s %s", s.APIID, s.EndpointName)
		}
		status := fmt.Sprintf("%d", s.Status)
		if s.Error != "" {
			status = fmt.Sprintf("%s (%s)", status, s.Error)
		}
		fmt.Printf("%s  %-8s  %-40s  %s  %s\n",
			s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Kind, target, s.Duration.Round(time.Millisecond), status)
	}
	fmt.Printf("%d of %d selections\n", len(selections), total)
	return nil
}
