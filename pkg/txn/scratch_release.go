//go:build !debug

package txn

import "github.com/cuemby/stow/pkg/log"

// scratchMisuse logs instead of crashing outside debug builds — a
// corrupted scratch pool is a bug to fix, not a reason to take down a
// running repository process.
func scratchMisuse(msg string) {
	log.Logger.Error().Msg("txn: " + msg)
}
