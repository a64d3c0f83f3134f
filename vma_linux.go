package abcfile

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// prctl(PR_SET_VMA, PR_SET_VMA_ANON_NAME, ...) names an anonymous mapping so
// it shows up as [anon:<name>] in /proc/<pid>/maps. Kernels built without
// CONFIG_ANON_VMA_NAME return EINVAL, which is treated as "not supported".
const (
	prSetVMA         = 0x53564d41
	prSetVMAAnonName = 0
)

func nameAnonRegion(region []byte, name string) bool {
	if len(region) == 0 || name == "" {
		return false
	}
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return false
	}
	err = unix.Prctl(prSetVMA, prSetVMAAnonName,
		uintptr(unsafe.Pointer(unsafe.SliceData(region))), uintptr(len(region)),
		uintptr(unsafe.Pointer(p)))
	runtime.KeepAlive(p)
	runtime.KeepAlive(region)
	return err == nil
}
