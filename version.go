package abcfile

import (
	"bytes"
	"fmt"
	"slices"
)

// Version is the raw 4-byte format version stored in the header. Versions
// are ordered lexicographically byte by byte.
type Version [VersionSize]byte

var (
	// CurrentVersion is the newest format version this package writes and
	// fully understands.
	CurrentVersion = Version{12, 0, 6, 0}

	// MinVersion is the oldest format version still supported.
	MinVersion = Version{0, 0, 0, 2}

	// lastLiteralArrayInHeader is the last version whose header still carries
	// the literal-array index. Later versions store the sentinel pair.
	lastLiteralArrayInHeader = Version{12, 0, 4, 0}

	// incompatibleVersions lists releases that fall inside the supported
	// range but produced containers this reader must not trust.
	incompatibleVersions = []Version{
		{9, 0, 0, 0},
		{10, 0, 0, 0},
	}
)

// Compare returns -1, 0 or +1 as v sorts before, equal to or after o.
func (v Version) Compare(o Version) int { return bytes.Compare(v[:], o[:]) }

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3]) }

// ContainsLiteralArrayInHeader reports whether containers of version v carry
// a literal-array index in the header.
func (v Version) ContainsLiteralArrayInHeader() bool {
	return v.Compare(lastLiteralArrayInHeader) <= 0
}

// versionProblem classifies v against the compiled-in support window.
// The empty string means v is compatible.
func versionProblem(v Version) string {
	switch {
	case v.Compare(MinVersion) < 0:
		return fmt.Sprintf("version %s is below the minimum supported %s; regenerate the container with a newer toolchain", v, MinVersion)
	case v.Compare(CurrentVersion) > 0:
		return fmt.Sprintf("version %s is newer than the supported %s; upgrade the runtime or regenerate the container with a matching toolchain", v, CurrentVersion)
	case slices.Contains(incompatibleVersions, v):
		return fmt.Sprintf("version %s is known to be incompatible; regenerate the container with toolchain %s", v, CurrentVersion)
	}
	return ""
}
