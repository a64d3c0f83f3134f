//go:build abcfile_strict

package abcfile

// Builds tagged abcfile_strict reject incompatible versions by default.
const strictVersionDefault = true
