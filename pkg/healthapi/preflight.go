package healthapi

import (
	"context"
	"fmt"
)

// Preflight runs every named check once and returns an error naming the
// first dependency that failed. Stage binaries call this before starting
// their queue loop — connectivity failures are fatal at startup, never
// mid-run (per the ambient error-handling split between startup and
// per-message failures).
func Preflight(ctx context.Context, checks map[string]Checker) error {
	for name, check := range checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("preflight check %q failed: %w", name, err)
		}
	}
	return nil
}
