// Package dag is the execution layer of pipegrid. It holds the task registry
// (an explicit adjacency structure addressed by task index), resolves a
// requested target into an execution plan, and runs that plan on a bounded
// worker pool so that independent branches proceed concurrently.
//
// A Graph is long lived and reusable: every Executor.Run call builds fresh
// per-run state, so the watch loop can re-enter the same graph as often as
// files change.
package dag
