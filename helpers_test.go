package abcfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// testClasses is the default class set used by fixtures. It is deliberately
// not in sorted order.
var testClasses = []string{"Lcom/example/Main;", "La/B;", "Lz/Last;"}

// buildContainer returns a valid container holding classes.
func buildContainer(t *testing.T, classes ...string) ([]byte, map[string]EntityID) {
	t.Helper()
	data, ids := NewBuilder().AddClass(classes...).Build()
	require.Len(t, ids, len(classes))
	return data, ids
}

// rewriteHeader applies edit to the header of data and re-encodes it in
// place, refreshing the checksum so only the edited field is wrong.
func rewriteHeader(t *testing.T, data []byte, edit func(*Header)) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	h := parseHeader(out)
	edit(&h)
	copy(out, h.AppendBinary(nil))
	binary.LittleEndian.PutUint32(out[MagicSize:], computeChecksum(out, min(h.FileSize, uint32(len(out)))))
	return out
}

// writeContainer writes data to a fresh file and returns its path.
func writeContainer(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.abc")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// panicOnFault makes access faults recoverable for the duration of a test.
func panicOnFault() Option { return WithFaultPolicy(FaultPanic) }

// openMemory opens data through the anonymous-memory path.
func openMemory(t *testing.T, data []byte, opts ...Option) *File {
	t.Helper()
	f, err := OpenFromMemory(data, t.Name(), "", append([]Option{panicOnFault()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// requireAccessFault runs fn and returns the *AccessError it panicked with.
func requireAccessFault(t *testing.T, fn func()) (ae *AccessError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an access fault")
		var ok bool
		ae, ok = r.(*AccessError)
		require.True(t, ok, "panic value %T is not *AccessError", r)
	}()
	fn()
	return nil
}

type zipMember struct {
	name   string
	data   []byte
	method uint16
}

// writeZip writes members, in order, to a fresh archive and returns its path.
func writeZip(t *testing.T, members ...zipMember) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.zip")
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()

	zw := zip.NewWriter(fh)
	for _, m := range members {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.name, Method: m.method})
		require.NoError(t, err)
		_, err = w.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// patchCentralSizes rewrites the sizes recorded for the only member in the
// central directory of the archive at path. A zero compressed size keeps the
// recorded one.
func patchCentralSizes(t *testing.T, path string, compressed, uncompressed uint32) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	i := bytes.LastIndex(raw, []byte("PK\x01\x02"))
	require.GreaterOrEqual(t, i, 0, "no central directory header")
	if compressed != 0 {
		binary.LittleEndian.PutUint32(raw[i+20:], compressed)
	}
	binary.LittleEndian.PutUint32(raw[i+24:], uncompressed)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}
