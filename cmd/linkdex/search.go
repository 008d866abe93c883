package main

import (
	"fmt"

	"github.com/fwojciec/linkdex"
)

// Run executes the search command.
//
// With a catalog URL configured the cache is refreshed first when stale.
// A failed save still leaves the fetched catalog searchable.
func (c *SearchCmd) Run(deps *Dependencies) error {
	if deps.URL != "" {
		if _, err := deps.Catalog.Refresh(deps.Ctx, false); err != nil {
			if linkdex.ErrorCode(err) != linkdex.ESTORAGE {
				fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
				return err
			}
			fmt.Fprintf(deps.Stderr, "warning: %s\n", linkdex.ErrorMessage(err))
		}
	}

	results, err := deps.Searcher.Search(deps.Ctx, c.Query, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(deps.Stdout, "No matches for %q.\n", c.Query)
		return nil
	}
	printResults(deps, results)
	return nil
}

// Run executes the complete command.
func (c *CompleteCmd) Run(deps *Dependencies) error {
	results, err := deps.Searcher.Complete(deps.Ctx, c.Prefix, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}
	for _, r := range results {
		fmt.Fprintln(deps.Stdout, r.Title)
	}
	return nil
}

func printResults(deps *Dependencies, results []linkdex.SearchResult) {
	for i, r := range results {
		fmt.Fprintf(deps.Stdout, "  %d. %s\n     %s\n", i+1, r.Title, r.Link)
	}
}
