// Package config defines the format-agnostic model of a buildfile, along with
// the Loader and Converter interfaces that format-specific packages implement.
//
// The Model is the single source of truth for building the task graph, the
// watch bindings and the development server.
package config
