// Package hcl provides the HCL implementation of the buildfile Loader and
// Converter interfaces defined in the config package.
//
// Loading happens in two passes. The first pass decodes only the `layout`
// block, evaluated against `root` and `env.*`. The second pass decodes every
// other block with `layout.*` available as well, so task inputs can be
// written as "${layout.source}/scss/**/*.scss".
package hcl
