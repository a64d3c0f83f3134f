//go:build !linux

package abcfile

func nameAnonRegion([]byte, string) bool { return false }
