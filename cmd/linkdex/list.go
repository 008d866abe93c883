package main

import (
	"fmt"

	"github.com/fwojciec/linkdex"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	snap, err := deps.Cache.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}

	if len(snap.Entries) == 0 {
		fmt.Fprintln(deps.Stdout, "Cache is empty. Use 'linkdex refresh' to fetch the catalog.")
		return nil
	}

	entries := snap.Entries
	if c.Limit > 0 && len(entries) > c.Limit {
		entries = entries[:c.Limit]
	}
	for _, e := range entries {
		fmt.Fprintf(deps.Stdout, "%s  %s\n", e.Title, e.Link)
	}
	if len(entries) < len(snap.Entries) {
		fmt.Fprintf(deps.Stdout, "... %d more\n", len(snap.Entries)-len(entries))
	}
	return nil
}
