// Package glob expands path patterns into concrete file lists at the moment a
// task runs. Nothing is cached between calls: a file created or deleted
// between two builds is seen by the next one.
//
// Patterns use doublestar syntax (`*`, `**`, `?`, `[...]`, `{a,b}`) and are
// interpreted relative to the project root unless absolute. An inclusion
// pattern prefixed with `!` is treated as an exclusion.
package glob
