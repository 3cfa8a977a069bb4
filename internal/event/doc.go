// Package event provides a bounded multi-subscriber broadcast bus and the
// typed events that flow through it. Publish never blocks: each subscriber
// owns a fixed-capacity queue and a full queue drops the event for that
// subscriber only. A hard cap on concurrent subscribers bounds memory.
package event
