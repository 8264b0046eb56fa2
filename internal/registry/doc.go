// Package registry maps the action names used in buildfiles to the compiled Go
// functions that implement them.
//
// Modules populate the registry at startup through the Module interface. The
// registry is then validated against the loaded buildfile so that a task
// naming an unknown action is reported before anything runs.
package registry
