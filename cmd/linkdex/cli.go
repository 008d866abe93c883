package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/linkdex"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	URL      string
	MaxAge   time.Duration
	Cache    linkdex.CacheStore
	Catalog  linkdex.CatalogService
	Searcher linkdex.Searcher
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL      string        `help:"Published catalog URL" env:"LINKDEX_URL"`
	Format   string        `enum:"pdf,html" default:"pdf" env:"LINKDEX_FORMAT" help:"Published document format (pdf, html)"`
	Store    string        `enum:"sqlite,badger,file" default:"sqlite" env:"LINKDEX_STORE" help:"Cache backend (sqlite, badger, file)"`
	DB       string        `env:"LINKDEX_DB" help:"Cache location (defaults to a file under ~/.linkdex)"`
	MaxAge   time.Duration `default:"1h" env:"LINKDEX_MAX_AGE" help:"Refetch when the cache is older than this"`
	Timeout  time.Duration `default:"30s" env:"LINKDEX_TIMEOUT" help:"Document fetch timeout"`
	Timezone string        `default:"UTC" env:"LINKDEX_TZ" help:"Time zone of the document's last update stamp"`
	Verbose  bool          `short:"v" help:"Log debug output to stderr"`

	Refresh    RefreshCmd    `cmd:"" help:"Fetch the catalog and update the cache"`
	Search     SearchCmd     `cmd:"" help:"Search catalog titles"`
	Complete   CompleteCmd   `cmd:"" help:"List titles starting with a prefix"`
	List       ListCmd       `cmd:"" help:"List cached catalog entries"`
	Status     StatusCmd     `cmd:"" help:"Show cache status"`
	Invalidate InvalidateCmd `cmd:"" help:"Remove the cached catalog"`
}

// RefreshCmd is the "refresh" subcommand.
type RefreshCmd struct {
	Force bool `short:"f" help:"Fetch even when the cache is fresh"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"5" help:"Maximum number of results"`
}

// CompleteCmd is the "complete" subcommand.
type CompleteCmd struct {
	Prefix string `arg:"" help:"Title prefix"`
	Limit  int    `short:"n" default:"10" help:"Maximum number of results"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Limit int `short:"n" help:"Maximum number of entries (0 lists all)"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// InvalidateCmd is the "invalidate" subcommand.
type InvalidateCmd struct {
	Force bool `help:"Confirm removal"`
}
