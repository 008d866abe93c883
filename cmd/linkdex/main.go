package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/linkdex"
	"github.com/fwojciec/linkdex/badger"
	"github.com/fwojciec/linkdex/fs"
	"github.com/fwojciec/linkdex/goquery"
	lxhttp "github.com/fwojciec/linkdex/http"
	"github.com/fwojciec/linkdex/pdf"
	"github.com/fwojciec/linkdex/refresh"
	lxslog "github.com/fwojciec/linkdex/slog"
	"github.com/fwojciec/linkdex/sqlite"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Directory holding the default cache files. Set before calling Run().
	DataDir string

	// Services for end-to-end testing. When set, Run uses them instead of
	// opening a store or creating an HTTP fetcher.
	Cache   linkdex.CacheStore
	Fetcher linkdex.DocumentFetcher

	closer io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DataDir: defaultDataDir(),
	}
}

// Close releases the cache store opened by Run.
func (m *Main) Close() error {
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("linkdex"),
		kong.Description("Search a published spreadsheet catalog of links."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'linkdex --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cli.Timezone, err)
	}

	cache := m.Cache
	if cache == nil {
		path := m.storePath(cli)
		cache, err = m.openCache(cli.Store, path, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Hint: Set LINKDEX_DB to use a different cache location\n")
			return fmt.Errorf("failed to open %s cache at %q: %w", cli.Store, path, err)
		}
		defer m.Close()
	}
	cache = lxslog.NewLoggingCacheStore(cache, logger)

	fetcher := m.Fetcher
	if fetcher == nil {
		fetcher = lxhttp.NewFetcher(lxhttp.WithTimeout(cli.Timeout))
	}
	fetcher = lxslog.NewLoggingFetcher(fetcher, logger)

	var extractor linkdex.Extractor
	switch cli.Format {
	case "html":
		extractor = &goquery.TableExtractor{Marker: linkdex.DefaultMarker, Location: loc}
	default:
		extractor = pdf.NewExtractor(pdf.WithLocation(loc))
	}
	extractor = lxslog.NewLoggingExtractor(extractor, logger)

	svc := refresh.NewService(cli.URL, fetcher, extractor, cache,
		refresh.WithMaxAge(cli.MaxAge),
		refresh.WithLogger(logger),
	)

	deps.URL = cli.URL
	deps.MaxAge = cli.MaxAge
	deps.Cache = cache
	deps.Catalog = svc
	deps.Searcher = svc

	return kongCtx.Run(deps)
}

// storePath returns the cache location for the selected store.
func (m *Main) storePath(cli *CLI) string {
	if cli.DB != "" {
		return cli.DB
	}
	name := "linkdex.db"
	switch cli.Store {
	case "badger":
		name = "badger"
	case "file":
		name = "catalog.json"
	}
	return filepath.Join(m.DataDir, name)
}

func (m *Main) openCache(store, path string, logger *slog.Logger) (linkdex.CacheStore, error) {
	switch store {
	case "badger":
		db := badger.NewDB(path, badger.WithLogger(logger))
		if err := db.Open(); err != nil {
			return nil, err
		}
		m.closer = db
		return badger.NewCacheStore(db), nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		return fs.NewCacheStore(path), nil
	default:
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			return nil, err
		}
		m.closer = db
		return sqlite.NewCacheStore(db), nil
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, ".linkdex")
	_ = os.MkdirAll(dir, 0755)
	return dir
}
