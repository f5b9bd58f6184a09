// Package log provides ra's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog, so output format and level handling stay consistent
// across the codebase without tying callers to a concrete handler.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.TextFormat),
//	)
//	l = l.WithComponent("logstore")
//	l.Info("store opened", log.Str("dir", dir), log.Uint64("last_index", idx))
//
// Tests and callers that want silence use NewNopLogger().
package log
