// Package main is the Lumina CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/app"
	"github.com/hyperjump/lumina/internal/cli"
	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/internal/ingest"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/server"
	"github.com/hyperjump/lumina/internal/watcher"
	"github.com/hyperjump/lumina/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/lumina/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither exists the built-in defaults are used, so the CLI works without setup.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			config.ApplyEnv(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "clear":
		runClear()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("lumina version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// openApp loads the config and builds the application context.
func openApp(configPath string, debug bool) (*app.App, string, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug, zap.String("service", "lumina"), zap.String("version", version))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	a, err := app.New(context.Background(), cfg, logger, version)
	if err != nil {
		_ = logger.Sync()
		return nil, "", err
	}
	return a, resolved, nil
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger.Warn("shutdown incomplete", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, file ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	a, resolvedConfigPath, err := openApp(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer closeApp(a)
	cfg := a.Config
	logger := a.Logger
	st := a.Store.Status()
	logger.Info("knowledge base ready",
		zap.String("config_path", resolvedConfigPath),
		zap.String("backend", st.Backend),
		zap.Bool("connected", st.Connected),
		zap.Int("items", st.Items))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchSvc := watcher.NewWatcher(
		a.Indexer,
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(a, watchSvc, resolvedConfigPath)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func printIngestUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: lumina ingest [flags] [file-or-directory...]\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  lumina ingest ./handbook.pdf ./policies
  lumina ingest --url https://en.wikipedia.org/wiki/Vector_database
  lumina ingest --json export.json --source CRM_Export
`)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var urls stringList
	fs.Var(&urls, "url", "web page to ingest (repeatable)")
	jsonFile := fs.String("json", "", "JSON file to ingest")
	source := fs.String("source", "", "source name for --json (default: API_Response)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printIngestUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if len(urls) == 0 && *jsonFile == "" && fs.NArg() == 0 {
		printIngestUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	a, _, err := openApp(*configPath, false)
	if err != nil {
		fatalf("%v", err)
	}
	defer closeApp(a)

	report, err := ingestSources(context.Background(), a, urls, *jsonFile, *source, fs.Args())
	if err != nil {
		closeApp(a)
		fatalf("Ingest failed: %v", err)
	}
	if err := cli.WriteIngestReport(os.Stdout, report, format); err != nil {
		closeApp(a)
		fatalf("Output failed: %v", err)
	}
}

// ingestSources ingests URLs, a JSON file and local paths, in that order, and sums the reports.
func ingestSources(ctx context.Context, a *app.App, urls []string, jsonFile, source string, paths []string) (ingest.IngestReport, error) {
	var total ingest.IngestReport
	addReport := func(r ingest.IngestReport) {
		total.Documents += r.Documents
		total.Chunks += r.Chunks
		total.Stored += r.Stored
		total.Rejected += r.Rejected
		total.Files += r.Files
		total.Skipped += r.Skipped
	}

	if len(urls) > 0 {
		r, err := a.Indexer.IngestURLs(ctx, urls)
		if err != nil {
			return total, fmt.Errorf("urls: %w", err)
		}
		addReport(r)
	}
	if jsonFile != "" {
		data, err := readJSONFile(jsonFile)
		if err != nil {
			return total, err
		}
		if source == "" {
			source = filepath.Base(jsonFile)
		}
		r, err := a.Indexer.IngestJSON(ctx, data, source)
		if err != nil {
			return total, fmt.Errorf("json: %w", err)
		}
		addReport(r)
	}
	for _, p := range paths {
		r, err := a.Indexer.IngestPath(ctx, p, a.Config.Ingest.Extensions)
		if err != nil {
			return total, fmt.Errorf("%s: %w", p, err)
		}
		addReport(r)
	}
	return total, nil
}

func readJSONFile(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	var data interface{}
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse json %s: %w", path, err)
	}
	return data, nil
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "lumina search \"query\" -limit 5"
// would otherwise leave -limit unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// queryFlags are shared by search and ask.
type queryFlags struct {
	fs           *flag.FlagSet
	configPath   *string
	serverURL    *string
	limit        *int
	outputFormat *string
}

func newQueryFlags(name, usage, examples string) *queryFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	q := &queryFlags{
		fs:           fs,
		configPath:   fs.String("config", defaultConfigPath, "config file path (for direct mode)"),
		serverURL:    fs.String("server", defaultServerURL, "server URL (empty = build the knowledge base in-process)"),
		limit:        fs.Int("limit", 0, "number of chunks to retrieve (default from config)"),
		outputFormat: fs.String("output", "text", "output format: text or json"),
	}
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "%s\n\n", usage)
		fs.PrintDefaults()
		fmt.Fprint(fs.Output(), examples)
	}
	return q
}

// parse parses args and returns the query and output format, exiting on bad input.
func (q *queryFlags) parse(args []string) (string, cli.OutputFormat) {
	_ = q.fs.Parse(argsReorder(args))
	query := buildQuery(q.fs.Args())
	if query == "" {
		q.fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*q.outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	return query, format
}

func runSearch() {
	q := newQueryFlags("search", "Usage: lumina search [flags] <query>", `
Examples:
  lumina search data retention policy
  lumina search --limit 5 --output json "incident review"
  lumina search --server "" onboarding checklist   # without a running server
`)
	queryStr, format := q.parse(os.Args[2:])
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *q.limit}
	ctx := context.Background()

	var response *models.SearchResponse
	var err error
	if *q.serverURL != "" {
		response, err = cli.NewClient(*q.serverURL, nil).Search(ctx, searchQuery)
	} else {
		a, _, openErr := openApp(*q.configPath, false)
		if openErr != nil {
			fatalf("%v", openErr)
		}
		response, err = a.Engine.Search(ctx, searchQuery)
		closeApp(a)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runAsk() {
	q := newQueryFlags("ask", "Usage: lumina ask [flags] <question>", `
Without a valid API key the answer is built from the retrieved passages directly.

Examples:
  lumina ask what is our data retention policy
  lumina ask --api-key sk-... "summarize the onboarding checklist"
`)
	apiKey := q.fs.String("api-key", "", "LLM API key (default from config or environment)")
	queryStr, format := q.parse(os.Args[2:])
	askQuery := &models.SearchQuery{Query: queryStr, Limit: *q.limit, APIKey: *apiKey}
	ctx := context.Background()

	var ans *models.Answer
	var err error
	if *q.serverURL != "" {
		ans, err = cli.NewClient(*q.serverURL, nil).Ask(ctx, askQuery)
	} else {
		a, _, openErr := openApp(*q.configPath, false)
		if openErr != nil {
			fatalf("%v", openErr)
		}
		ans, err = a.Engine.Ask(ctx, askQuery)
		closeApp(a)
	}
	if err != nil {
		fatalf("Ask failed: %v", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = clear in-process)")
	_ = fs.Parse(os.Args[2:])

	var cleared bool
	if *serverURL != "" {
		var err error
		cleared, err = cli.NewClient(*serverURL, nil).Clear(context.Background())
		if err != nil {
			fatalf("Clear failed: %v", err)
		}
	} else {
		a, _, err := openApp(*configPath, false)
		if err != nil {
			fatalf("%v", err)
		}
		cleared = a.Clear(context.Background())
		closeApp(a)
	}
	if !cleared {
		fatalf("Clear failed: knowledge base could not be cleared")
	}
	fmt.Println("Knowledge base cleared")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var status *app.Status
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL, nil).Status(context.Background())
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		a, _, openErr := openApp(*configPath, false)
		if openErr != nil {
			fatalf("%v", openErr)
		}
		st := a.Status(context.Background())
		status = &st
		closeApp(a)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		printWatchUsage(os.Stdout)
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[3:])
	client := cli.NewClient(*serverURL, nil)
	ctx := context.Background()

	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: lumina watch %s <path>\n", sub)
			os.Exit(1)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		if sub == "add" {
			if err := client.WatchAdd(ctx, path); err != nil {
				fatalf("Add failed: %v", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := client.WatchRemove(ctx, path); err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.WatchList(ctx)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		printWatchUsage(os.Stdout)
		os.Exit(1)
	}
}

func printWatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lumina watch <add|remove|list> [path]")
	fmt.Fprintln(w, "  lumina watch add <path>     Add directory to watch")
	fmt.Fprintln(w, "  lumina watch remove <path>  Remove directory from watch")
	fmt.Fprintln(w, "  lumina watch list           List watched directories")
}

func printUsage() {
	fmt.Println(`lumina - Enterprise knowledge link over a vector store

Usage:
  lumina server [flags]                 Start the HTTP server
  lumina ingest [flags] [paths...]      Ingest files, directories, web pages or JSON
  lumina search [flags] <query>         Search the knowledge base
  lumina ask [flags] <question>         Answer a question from the knowledge base
  lumina clear [flags]                  Remove every stored chunk
  lumina status [flags]                 Show vector store and catalogue status
  lumina watch <add|remove|list>        Manage watched directories
  lumina version                        Show version
  lumina help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/lumina/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --url string       Web page to ingest (repeatable)
  --json string      JSON file to ingest
  --source string    Source name for --json
  --output string    Output format: text or json (default: text)

Search / Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --limit int        Number of chunks to retrieve (default from config)
  --output string    Output format: text or json (default: text)
  --api-key string   (ask only) LLM API key; without a valid key the answer quotes the evidence

Clear / Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --output string    (status only) Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  lumina server
  lumina ingest ./docs --url https://example.com/handbook
  lumina search "data retention"
  lumina ask --api-key sk-... "what is our data retention policy?"
  lumina status --output json
  lumina clear
  lumina watch add /path/to/docs`)
}
