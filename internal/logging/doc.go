// Package logging provides structured logging for copydesk.
// It wraps Go's log/slog package to produce JSON-formatted logs with
// persistent attribute propagation (draft, client, gate) so a single
// draft's path through the pipeline and approval queue can be traced.
package logging
