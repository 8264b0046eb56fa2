// Package app wires a loaded buildfile to the action registry, the task
// graph and, for watch targets, the dev server and watch loop. It is
// independent of the command line; cmd/cli only parses flags and calls Run.
package app
