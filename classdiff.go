// classdiff.go  – class-set comparison between two containers
package abcfile

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// ClassDiff is the difference between the class sets of two containers.
type ClassDiff struct {
	// Added lists descriptors present only in the new container, in index
	// order.
	Added []string

	// Removed lists descriptors present only in the old container.
	Removed []string

	// Unified is a unified diff of the two descriptor listings, one
	// descriptor per line. It is empty when the sets are equal.
	Unified string
}

// Equal reports whether both containers define the same classes.
func (d *ClassDiff) Equal() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// ClassDescriptors returns every class descriptor in class-index order.
// Records that fail to decode are reported as an error.
func (f *File) ClassDescriptors() ([]string, error) {
	classes := f.Classes()
	out := make([]string, 0, classes.Len())
	for _, id := range classes.All() {
		sd, err := f.StringData(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sd.String())
	}
	return out, nil
}

// DiffClasses compares the class sets of oldF and newF with a line-oriented
// Myers diff over their sorted descriptor listings. The names label the two
// sides of the unified output.
func DiffClasses(oldName string, oldF *File, newName string, newF *File) (*ClassDiff, error) {
	a, err := oldF.ClassDescriptors()
	if err != nil {
		return nil, err
	}
	b, err := newF.ClassDescriptors()
	if err != nil {
		return nil, err
	}
	return diffListings(oldName, a, newName, b), nil
}

func diffListings(oldName string, a []string, newName string, b []string) *ClassDiff {
	at, bt := listing(a), listing(b)
	d := &ClassDiff{}
	if at == bt {
		return d
	}

	edits := myers.ComputeEdits(span.URIFromPath(oldName), at, bt)
	u := gotextdiff.ToUnified(oldName, newName, at, edits)
	for _, h := range u.Hunks {
		for _, ln := range h.Lines {
			text := strings.TrimSuffix(ln.Content, "\n")
			switch ln.Kind {
			case gotextdiff.Insert:
				d.Added = append(d.Added, text)
			case gotextdiff.Delete:
				d.Removed = append(d.Removed, text)
			}
		}
	}
	d.Unified = fmt.Sprint(u)
	return d
}

// listing joins descriptors one per line without copying the result.
func listing(descs []string) string {
	if len(descs) == 0 {
		return ""
	}
	var b []byte
	for _, d := range descs {
		b = append(b, d...)
		b = append(b, '\n')
	}
	return unsafe.String(&b[0], len(b))
}
