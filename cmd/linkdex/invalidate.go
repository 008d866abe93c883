package main

import (
	"fmt"

	"github.com/fwojciec/linkdex"
)

// Run executes the invalidate command.
func (c *InvalidateCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm removal\n")
		return linkdex.Errorf(linkdex.EINVALID, "use --force to confirm removal")
	}

	if err := deps.Cache.Invalidate(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", linkdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, "Cache cleared")
	return nil
}
