// Package watch implements the watch/reload loop: bindings from file
// patterns to tasks or to a live-reload signal, driven by a filesystem event
// source and coalesced with a debounce window.
//
// A Loop moves from Idle to Watching when Run starts, to Triggering while a
// binding is executing, and back to Watching afterwards. Run ends in
// Stopped, either because its context was cancelled or because the event
// source failed.
package watch
