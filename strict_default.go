//go:build !abcfile_strict

package abcfile

const strictVersionDefault = false
