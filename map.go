package seqmap

import (
	"encoding/binary"
	"hash/crc32"
)

// Map is a read-only lookup view over an image produced by Builder.Build.
// It borrows the buffer without copying it: the Map must not outlive the
// buffer, and the buffer must not be mutated while the Map is in use.
//
// A Map performs no writes, so any number of goroutines may call Get
// concurrently on the same Map (or on distinct Maps over the same bytes)
// without synchronization.
type Map struct {
	buf []byte
	hdr header
}

// NewMap attaches a lookup view to buf. Validation is O(1) and inspects only
// the header: a magic/version/bits mismatch yields *FormatError, declared
// extents exceeding the buffer yield *TruncatedError. The structure itself is
// never walked here.
func NewMap(buf []byte, opts ...MapOption) (*Map, error) {
	var o mapOptions
	for _, opt := range opts {
		opt(&o)
	}

	hdr, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	m := &Map{buf: buf, hdr: hdr}
	if o.verify {
		if err := m.Verify(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Bits returns the bits-per-level configuration recorded in the image header.
func (m *Map) Bits() int {
	return int(m.hdr.bits)
}

// Checksum returns the CRC32 recorded in the image header.
func (m *Map) Checksum() uint32 {
	return m.hdr.checksum
}

// Verify recomputes the CRC32 of the node table and string pool and compares
// it against the header. Unlike NewMap this is O(image size); it exists for
// callers that load images from untrusted or corruption-prone storage.
func (m *Map) Verify() error {
	end := m.hdr.poolOff + m.hdr.poolLen
	actual := crc32.ChecksumIEEE(m.buf[headerSize:end])
	if actual != m.hdr.checksum {
		return &ChecksumMismatchError{Expected: m.hdr.checksum, Actual: actual}
	}
	return nil
}

// Get looks up key and returns a copy of the stored value. The second result
// distinguishes absence from a stored empty string.
func (m *Map) Get(key uint64) (string, bool) {
	b, ok := m.lookup(key)
	if !ok {
		return "", false
	}
	return string(b), true
}

// GetBytes is the zero-copy variant of Get: the returned slice aliases the
// underlying buffer and is valid only as long as the buffer is neither
// mutated nor deallocated. Callers must not modify it.
func (m *Map) GetBytes(key uint64) ([]byte, bool) {
	return m.lookup(key)
}

// lookup walks the node table by offset arithmetic alone. Absence is a
// normal outcome, never an error; a structurally impossible reference (only
// reachable through a corrupted interior that still carried a valid header
// and checksum) also reads as absent, so a constructed Map can never index
// out of bounds.
func (m *Map) lookup(key uint64) ([]byte, bool) {
	nodeSize := m.hdr.nodeSize()
	off := m.hdr.rootOff
	k := key
	remaining := 64
	for remaining > 0 {
		width := levelWidth(m.hdr.bits, remaining)
		idx := k & (1<<width - 1)
		k >>= width
		remaining -= width

		slot := m.buf[off+uint64(idx)*slotSize:]
		target := uint64(binary.LittleEndian.Uint32(slot[4:8]))
		switch slot[0] {
		case slotInternal:
			if remaining == 0 {
				return nil, false
			}
			next := headerSize + target
			if next+nodeSize > m.hdr.poolOff || target%nodeSize != 0 {
				return nil, false
			}
			off = next
		case slotLeaf:
			if remaining != 0 {
				return nil, false
			}
			return m.poolEntry(target)
		default:
			return nil, false
		}
	}
	return nil, false
}

// poolEntry resolves a leaf target to its byte run in the string pool.
func (m *Map) poolEntry(target uint64) ([]byte, bool) {
	if target+4 > m.hdr.poolLen {
		return nil, false
	}
	start := m.hdr.poolOff + target
	n := uint64(binary.LittleEndian.Uint32(m.buf[start : start+4]))
	if target+4+n > m.hdr.poolLen {
		return nil, false
	}
	return m.buf[start+4 : start+4+n], true
}
