/*
Package log provides structured logging for stow using zerolog.

It wraps zerolog to give every package a JSON-or-console logger with
component-scoped child loggers, initialized once at process start via
Init and read thereafter through the package-level Logger and the
With* helpers.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	log.Info("repository opened")

	rlog := log.WithComponent("content")
	rlog.Debug().Int64("rid", rid).Msg("delta chain resolved")

	log.WithArtifact(hash).Warn().Msg("deltify skipped: below size floor")

Never log artifact bytes themselves (they may be private); log hashes,
RIDs, and counts instead.
*/
package log
