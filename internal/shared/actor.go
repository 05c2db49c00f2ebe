// Package shared holds small cross-cutting helpers with no natural home
// in a single domain package, following the teacher's internal/shared
// convention.
package shared

import (
	"os"

	"github.com/urfave/cli/v2"
)

// GetActorFromContext resolves the actor the process should default to
// for requests that don't name one, from the --actor CLI flag with the
// same fallback order as ResolveActor.
func GetActorFromContext(c *cli.Context) string {
	return ResolveActor(c.String("actor"))
}

// ResolveActor applies the fallback order: the given actor if non-empty,
// else $USER, else "unknown".
func ResolveActor(actor string) string {
	if actor == "" {
		actor = os.Getenv("USER")
	}
	if actor == "" {
		actor = "unknown"
	}
	return actor
}
