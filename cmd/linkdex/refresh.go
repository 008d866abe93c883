package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/linkdex"
)

// Run executes the refresh command.
func (c *RefreshCmd) Run(deps *Dependencies) error {
	if deps.URL == "" {
		fmt.Fprintln(deps.Stderr, "error: --url or LINKDEX_URL is required to refresh")
		return linkdex.Errorf(linkdex.EINVALID, "catalog URL required")
	}

	res, err := deps.Catalog.Refresh(deps.Ctx, c.Force)
	if res != nil {
		fmt.Fprintln(deps.Stdout, describeRefresh(res))
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}
	return nil
}

func describeRefresh(res *linkdex.RefreshResult) string {
	var updated string
	if res.Timestamp != nil {
		updated = fmt.Sprintf(" (updated %s)", res.Timestamp.Format(time.DateTime))
	}
	switch {
	case res.Stale:
		return fmt.Sprintf("Fetch failed, serving %d stale cached entries%s", len(res.Entries), updated)
	case res.Unchanged:
		return fmt.Sprintf("Catalog unchanged: %d entries%s", len(res.Entries), updated)
	case res.FromCache:
		return fmt.Sprintf("Cache is fresh: %d entries%s", len(res.Entries), updated)
	default:
		return fmt.Sprintf("Refreshed %d entries%s", len(res.Entries), updated)
	}
}
