package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/linkdex"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	snap, err := deps.Cache.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}

	if snap.Meta == nil {
		fmt.Fprintln(deps.Stdout, "Cache is empty. Use 'linkdex refresh' to fetch the catalog.")
		return nil
	}

	stale, err := deps.Cache.IsStale(deps.Ctx, deps.MaxAge)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Entries:  %d\n", len(snap.Entries))
	fmt.Fprintf(deps.Stdout, "Updated:  %s\n", snap.Meta.Timestamp.Format(time.DateTime))
	if !snap.Meta.CheckedAt.IsZero() {
		fmt.Fprintf(deps.Stdout, "Checked:  %s\n", snap.Meta.CheckedAt.Format(time.DateTime))
	}
	fmt.Fprintf(deps.Stdout, "Snapshot: %s\n", snap.Meta.ID)
	if snap.Meta.Digest != "" {
		fmt.Fprintf(deps.Stdout, "Digest:   %s\n", snap.Meta.Digest)
	}
	fmt.Fprintf(deps.Stdout, "Schema:   v%d\n", snap.SchemaVersion)
	fmt.Fprintf(deps.Stdout, "Stale:    %t\n", stale)
	return nil
}
