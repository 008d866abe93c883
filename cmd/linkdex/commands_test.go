package main_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fwojciec/linkdex"
	main "github.com/fwojciec/linkdex/cmd/linkdex"
	"github.com/fwojciec/linkdex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updated = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newDeps() (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
		URL:    "https://docs.example/pub",
		MaxAge: time.Hour,
	}, stdout, stderr
}

func TestRefreshCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("reports refreshed entries", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		var forced bool
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, force bool) (*linkdex.RefreshResult, error) {
				forced = force
				return &linkdex.RefreshResult{Entries: make([]linkdex.Entry, 3), Timestamp: &updated}, nil
			},
		}

		err := (&main.RefreshCmd{Force: true}).Run(deps)

		require.NoError(t, err)
		assert.True(t, forced)
		assert.Equal(t, "Refreshed 3 entries (updated 2026-10-14 09:30:00)\n", stdout.String())
	})

	t.Run("reports a stale fallback", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, _ bool) (*linkdex.RefreshResult, error) {
				return &linkdex.RefreshResult{Entries: make([]linkdex.Entry, 2), FromCache: true, Stale: true}, nil
			},
		}

		err := (&main.RefreshCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "serving 2 stale cached entries")
	})

	t.Run("reports an unchanged catalog", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, _ bool) (*linkdex.RefreshResult, error) {
				return &linkdex.RefreshResult{Entries: make([]linkdex.Entry, 4), Unchanged: true}, nil
			},
		}

		require.NoError(t, (&main.RefreshCmd{}).Run(deps))
		assert.Contains(t, stdout.String(), "Catalog unchanged: 4 entries")
	})

	t.Run("prints entries and the error when saving fails", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps()
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, _ bool) (*linkdex.RefreshResult, error) {
				return &linkdex.RefreshResult{Entries: make([]linkdex.Entry, 1)}, linkdex.Errorf(linkdex.ESTORAGE, "disk full")
			},
		}

		err := (&main.RefreshCmd{}).Run(deps)

		assert.Equal(t, linkdex.ESTORAGE, linkdex.ErrorCode(err))
		assert.Contains(t, stdout.String(), "Refreshed 1 entries")
		assert.Equal(t, "error: disk full\n", stderr.String())
	})

	t.Run("requires a catalog URL", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps()
		deps.URL = ""

		err := (&main.RefreshCmd{}).Run(deps)

		assert.Equal(t, linkdex.EINVALID, linkdex.ErrorCode(err))
		assert.Contains(t, stderr.String(), "LINKDEX_URL")
	})
}

func TestSearchCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("refreshes then prints ranked results", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		refreshed := false
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, force bool) (*linkdex.RefreshResult, error) {
				refreshed = true
				assert.False(t, force)
				return &linkdex.RefreshResult{}, nil
			},
		}
		deps.Searcher = &mock.Searcher{
			SearchFn: func(_ context.Context, query string, limit int) ([]linkdex.SearchResult, error) {
				assert.Equal(t, "aple", query)
				assert.Equal(t, 5, limit)
				return []linkdex.SearchResult{
					{Title: "Apple Pie", Link: "https://a.example"},
					{Title: "Pineapple", Link: "https://p.example"},
				}, nil
			},
		}

		err := (&main.SearchCmd{Query: "aple", Limit: 5}).Run(deps)

		require.NoError(t, err)
		assert.True(t, refreshed)
		assert.Equal(t, "  1. Apple Pie\n     https://a.example\n  2. Pineapple\n     https://p.example\n", stdout.String())
	})

	t.Run("searches the cache without a URL", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.URL = ""
		deps.Catalog = &mock.CatalogService{}
		deps.Searcher = &mock.Searcher{
			SearchFn: func(_ context.Context, _ string, _ int) ([]linkdex.SearchResult, error) {
				return nil, nil
			},
		}

		err := (&main.SearchCmd{Query: "zzz", Limit: 5}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, "No matches for \"zzz\".\n", stdout.String())
	})

	t.Run("continues after a storage error", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps()
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, _ bool) (*linkdex.RefreshResult, error) {
				return &linkdex.RefreshResult{}, linkdex.Errorf(linkdex.ESTORAGE, "disk full")
			},
		}
		deps.Searcher = &mock.Searcher{
			SearchFn: func(_ context.Context, _ string, _ int) ([]linkdex.SearchResult, error) {
				return []linkdex.SearchResult{{Title: "A", Link: "https://a.example"}}, nil
			},
		}

		err := (&main.SearchCmd{Query: "a", Limit: 5}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stderr.String(), "warning: disk full")
		assert.Contains(t, stdout.String(), "1. A")
	})

	t.Run("stops when no catalog is available", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps()
		deps.Catalog = &mock.CatalogService{
			RefreshFn: func(_ context.Context, _ bool) (*linkdex.RefreshResult, error) {
				return nil, linkdex.Errorf(linkdex.EEMPTY, "no catalog available")
			},
		}
		deps.Searcher = &mock.Searcher{}

		err := (&main.SearchCmd{Query: "a", Limit: 5}).Run(deps)

		assert.Equal(t, linkdex.EEMPTY, linkdex.ErrorCode(err))
		assert.Equal(t, "error: no catalog available\n", stderr.String())
	})
}

func TestCompleteCmd_Run(t *testing.T) {
	t.Parallel()

	deps, stdout, _ := newDeps()
	deps.Searcher = &mock.Searcher{
		CompleteFn: func(_ context.Context, prefix string, limit int) ([]linkdex.SearchResult, error) {
			assert.Equal(t, "ap", prefix)
			assert.Equal(t, 10, limit)
			return []linkdex.SearchResult{{Title: "Apple Pie"}, {Title: "apricot"}}, nil
		},
	}

	err := (&main.CompleteCmd{Prefix: "ap", Limit: 10}).Run(deps)

	require.NoError(t, err)
	assert.Equal(t, "Apple Pie\napricot\n", stdout.String())
}

func TestListCmd_Run(t *testing.T) {
	t.Parallel()

	cache := func(entries ...linkdex.Entry) *mock.CacheStore {
		return &mock.CacheStore{
			LoadFn: func(_ context.Context) (*linkdex.Snapshot, error) {
				return &linkdex.Snapshot{Entries: entries}, nil
			},
		}
	}

	t.Run("lists entries in catalog order", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Cache = cache(
			linkdex.Entry{Title: "B", Link: "https://b.example"},
			linkdex.Entry{Title: "A", Link: "https://a.example"},
		)

		require.NoError(t, (&main.ListCmd{}).Run(deps))
		assert.Equal(t, "B  https://b.example\nA  https://a.example\n", stdout.String())
	})

	t.Run("honours limit", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Cache = cache(
			linkdex.Entry{Title: "B", Link: "https://b.example"},
			linkdex.Entry{Title: "A", Link: "https://a.example"},
			linkdex.Entry{Title: "C", Link: "https://c.example"},
		)

		require.NoError(t, (&main.ListCmd{Limit: 1}).Run(deps))
		assert.Equal(t, "B  https://b.example\n... 2 more\n", stdout.String())
	})

	t.Run("shows helpful message when the cache is empty", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Cache = cache()

		require.NoError(t, (&main.ListCmd{}).Run(deps))
		assert.Contains(t, stdout.String(), "linkdex refresh")
	})
}

func TestStatusCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints snapshot metadata", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Cache = &mock.CacheStore{
			LoadFn: func(_ context.Context) (*linkdex.Snapshot, error) {
				return &linkdex.Snapshot{
					SchemaVersion: 3,
					Entries:       make([]linkdex.Entry, 2),
					Meta:          &linkdex.SnapshotMeta{ID: "snap-1", Timestamp: updated, Count: 2, Digest: "abc", CheckedAt: updated.Add(time.Hour)},
				}, nil
			},
			IsStaleFn: func(_ context.Context, maxAge time.Duration) (bool, error) {
				assert.Equal(t, time.Hour, maxAge)
				return true, nil
			},
		}

		require.NoError(t, (&main.StatusCmd{}).Run(deps))

		output := stdout.String()
		assert.Contains(t, output, "Entries:  2")
		assert.Contains(t, output, "Updated:  2026-10-14 09:30:00")
		assert.Contains(t, output, "Checked:  2026-10-14 10:30:00")
		assert.Contains(t, output, "Snapshot: snap-1")
		assert.Contains(t, output, "Digest:   abc")
		assert.Contains(t, output, "Schema:   v3")
		assert.Contains(t, output, "Stale:    true")
	})

	t.Run("reports an empty cache", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Cache = &mock.CacheStore{
			LoadFn: func(_ context.Context) (*linkdex.Snapshot, error) {
				return &linkdex.Snapshot{}, nil
			},
		}

		require.NoError(t, (&main.StatusCmd{}).Run(deps))
		assert.Contains(t, stdout.String(), "Cache is empty")
	})
}

func TestInvalidateCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("requires --force", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps()
		deps.Cache = &mock.CacheStore{}

		err := (&main.InvalidateCmd{}).Run(deps)

		assert.Equal(t, linkdex.EINVALID, linkdex.ErrorCode(err))
		assert.Contains(t, stderr.String(), "--force")
	})

	t.Run("clears the cache", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		called := false
		deps.Cache = &mock.CacheStore{
			InvalidateFn: func(_ context.Context) error {
				called = true
				return nil
			},
		}

		require.NoError(t, (&main.InvalidateCmd{Force: true}).Run(deps))
		assert.True(t, called)
		assert.Equal(t, "Cache cleared\n", stdout.String())
	})
}
