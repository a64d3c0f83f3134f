package abcfile

import (
	"bytes"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// StringData is a decoded string record.
//
// On disk a record is a ULEB128 tag, whose bit 0 is the ASCII flag and whose
// remaining bits are the UTF-16 length, followed by the MUTF-8 payload with no
// terminator.
type StringData struct {
	UTF16Length uint32
	IsASCII     bool
	// Data aliases the mapping.
	Data []byte
}

// String decodes the MUTF-8 payload into a Go string.
func (s StringData) String() string { return decodeMUTF8(s.Data) }

// maxULEB128Len32 is the longest encoding of a 32-bit value.
const maxULEB128Len32 = 5

// decodeULEB128 reads an unsigned LEB128 value of at most 32 bits. It
// returns the value, the number of bytes consumed and whether the encoding
// was well formed.
func decodeULEB128(b []byte) (uint32, int, bool) {
	var v uint64
	for i := 0; i < len(b) && i < maxULEB128Len32; i++ {
		c := b[i]
		v |= uint64(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			if v > uint64(^uint32(0)) {
				return 0, 0, false
			}
			return uint32(v), i + 1, true
		}
	}
	return 0, 0, false
}

// appendULEB128 appends the LEB128 encoding of v.
func appendULEB128(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// mutf8ByteLen returns how many bytes of b encode units UTF-16 code units.
// One- to three-byte sequences count as one unit; a four-byte sequence counts
// as a surrogate pair.
func mutf8ByteLen(b []byte, units uint32) (int, bool) {
	n := 0
	for units > 0 {
		if n >= len(b) {
			return 0, false
		}
		c := b[n]
		var size int
		var cost uint32 = 1
		switch {
		case c&0x80 == 0:
			size = 1
		case c&0xe0 == 0xc0:
			size = 2
		case c&0xf0 == 0xe0:
			size = 3
		case c&0xf8 == 0xf0:
			size, cost = 4, 2
		default:
			return 0, false
		}
		if cost > units || size > len(b)-n {
			return 0, false
		}
		for _, cc := range b[n+1 : n+size] {
			if cc&0xc0 != 0x80 {
				return 0, false
			}
		}
		n += size
		units -= cost
	}
	return n, true
}

// decodeStringRecord parses one record at the start of b.
func decodeStringRecord(b []byte) (StringData, error) {
	tag, n, ok := decodeULEB128(b)
	if !ok {
		return StringData{}, fmt.Errorf("%w: bad length tag", ErrBadStringRecord)
	}
	sd := StringData{UTF16Length: tag >> 1, IsASCII: tag&1 != 0}
	payload := b[n:]

	var size int
	if sd.IsASCII {
		if uint64(sd.UTF16Length) > uint64(len(payload)) {
			return StringData{}, fmt.Errorf("%w: %d ASCII bytes past end", ErrBadStringRecord, sd.UTF16Length)
		}
		size = int(sd.UTF16Length)
	} else {
		if size, ok = mutf8ByteLen(payload, sd.UTF16Length); !ok {
			return StringData{}, fmt.Errorf("%w: truncated or invalid MUTF-8 payload", ErrBadStringRecord)
		}
	}
	sd.Data = payload[:size:size]
	return sd, nil
}

// AppendStringRecord appends the on-disk record for s. The payload is
// MUTF-8; a string made only of bytes 0x01-0x7f is flagged ASCII.
func AppendStringRecord(b []byte, s string) []byte {
	ascii := true
	units := 0
	for _, r := range s {
		if r == 0 || r >= utf8.RuneSelf {
			ascii = false
		}
		units += utf16.RuneLen(r)
	}
	tag := uint32(units) << 1
	if ascii {
		tag |= 1
	}
	b = appendULEB128(b, tag)
	return AppendMUTF8(b, s)
}

// AppendMUTF8 appends the MUTF-8 encoding of s. NUL becomes C0 80 and a rune
// outside the BMP becomes a surrogate pair, each half encoded in three bytes.
// Everything else is plain UTF-8.
func AppendMUTF8(b []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			b = append(b, 0xc0, 0x80)
		case r < utf8.RuneSelf:
			b = append(b, byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			b = appendUnit3(b, uint16(hi))
			b = appendUnit3(b, uint16(lo))
		default:
			b = utf8.AppendRune(b, r)
		}
	}
	return b
}

// appendUnit3 writes one UTF-16 code unit as a three-byte sequence.
func appendUnit3(b []byte, u uint16) []byte {
	return append(b, 0xe0|byte(u>>12), 0x80|byte(u>>6)&0x3f, 0x80|byte(u)&0x3f)
}

// mutf8Key returns the MUTF-8 bytes that a descriptor is stored as.
func mutf8Key(s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= 0xf0 {
			return AppendMUTF8(make([]byte, 0, len(s)+4), s)
		}
	}
	return []byte(s)
}

// decodeMUTF8 converts MUTF-8 to a Go string. Surrogate pairs are joined;
// four-byte UTF-8 sequences are accepted as well. Malformed input decodes to
// utf8.RuneError rather than failing.
func decodeMUTF8(b []byte) string {
	plain := true
	for _, c := range b {
		if c == 0xc0 || c == 0xed {
			plain = false
			break
		}
	}
	if plain {
		return string(b)
	}

	var units []uint16
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		case c&0xf8 == 0xf0:
			r, n := utf8.DecodeRune(b[i:])
			units = utf16.AppendRune(units, r)
			i += n
		default:
			units = append(units, utf8.RuneError)
			i++
		}
	}
	return string(utf16.Decode(units))
}

// CompareMUTF8 orders two MUTF-8 strings. Byte order on MUTF-8 is the order
// the class index is sorted by.
func CompareMUTF8(a, b []byte) int { return bytes.Compare(a, b) }

// StringData decodes the string record at id.
func (f *File) StringData(id EntityID) (StringData, error) {
	sp, err := f.TrySpan(id)
	if err != nil {
		return StringData{}, err
	}
	return decodeStringRecord(sp.data)
}

// mustStringData decodes the record at id and treats any failure as an
// access fault.
func (f *File) mustStringData(id EntityID) StringData {
	sd, err := f.StringData(id)
	if err != nil {
		f.fault(id.Offset(), err)
		return StringData{}
	}
	return sd
}
