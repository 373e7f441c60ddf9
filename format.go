package seqmap

import (
	"encoding/binary"
)

// Image format, version 1. All integers are little-endian with fixed widths;
// the version field is bumped if either ever changes.
//
// Header (48 bytes):
//
//	[0:4]   magic "SQMP"
//	[4:6]   format version
//	[6]     bits per trie level
//	[7]     flags (reserved, zero)
//	[8:12]  node count
//	[12:16] CRC32 (IEEE) of everything after the header
//	[16:24] root node offset (absolute)
//	[24:32] string pool offset (absolute)
//	[32:40] string pool length
//	[40:48] reserved
//
// The node table follows the header: nodeCount records, each 2^bits slots of
// 8 bytes (tag byte, 3 pad bytes, uint32 target offset). Internal offsets are
// relative to the node table start, leaf offsets to the pool start. Target
// offsets are uint32, so the node table and the string pool are each capped
// at 4 GiB; Build enforces the cap.
//
// The string pool follows the node table: length-prefixed (uint32) byte runs.
const (
	imageMagic   = "SQMP"
	imageVersion = uint16(1)

	headerSize = 48
	slotSize   = 8

	slotAbsent   = byte(0)
	slotInternal = byte(1)
	slotLeaf     = byte(2)

	// MinBits and MaxBits bound the per-level branching configuration.
	// A node record holds 2^bits fixed-width slots, so values beyond 16
	// would make a single record larger than any sane image.
	MinBits = 1
	MaxBits = 16
)

type header struct {
	bits      uint8
	nodeCount uint32
	checksum  uint32
	rootOff   uint64
	poolOff   uint64
	poolLen   uint64
}

// nodeSize returns the byte size of one node record.
func (h header) nodeSize() uint64 {
	return slotSize << h.bits
}

func (h header) append(buf []byte) []byte {
	buf = append(buf, imageMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, imageVersion)
	buf = append(buf, h.bits, 0)
	buf = binary.LittleEndian.AppendUint32(buf, h.nodeCount)
	buf = binary.LittleEndian.AppendUint32(buf, h.checksum)
	buf = binary.LittleEndian.AppendUint64(buf, h.rootOff)
	buf = binary.LittleEndian.AppendUint64(buf, h.poolOff)
	buf = binary.LittleEndian.AppendUint64(buf, h.poolLen)
	buf = append(buf, make([]byte, 8)...)
	return buf
}

// parseHeader validates an image header against the supplied buffer. It is
// the only validation step: O(1), header fields only, never a structure walk.
func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, &TruncatedError{Need: headerSize, Have: uint64(len(buf))}
	}
	if string(buf[0:4]) != imageMagic {
		return header{}, &FormatError{Reason: "bad magic"}
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != imageVersion {
		return header{}, &FormatError{Reason: "unsupported version", Version: v}
	}

	h := header{
		bits:      buf[6],
		nodeCount: binary.LittleEndian.Uint32(buf[8:12]),
		checksum:  binary.LittleEndian.Uint32(buf[12:16]),
		rootOff:   binary.LittleEndian.Uint64(buf[16:24]),
		poolOff:   binary.LittleEndian.Uint64(buf[24:32]),
		poolLen:   binary.LittleEndian.Uint64(buf[32:40]),
	}
	if h.bits < MinBits || h.bits > MaxBits {
		return header{}, &FormatError{Reason: "bits out of range"}
	}

	// nodeCount is 32 bits and a node record is at most 8<<16 bytes, so
	// tableLen cannot overflow. poolOff, poolLen and rootOff are raw uint64
	// fields and can: they are bounds-checked without ever summing them.
	tableLen := uint64(h.nodeCount) * h.nodeSize()
	if h.poolOff != headerSize+tableLen {
		return header{}, &FormatError{Reason: "pool offset does not follow node table"}
	}
	if h.poolOff > uint64(len(buf)) {
		return header{}, &TruncatedError{Need: h.poolOff, Have: uint64(len(buf))}
	}
	if h.poolLen > uint64(len(buf))-h.poolOff {
		return header{}, &TruncatedError{Need: h.poolLen, Have: uint64(len(buf)) - h.poolOff}
	}
	if h.nodeCount == 0 {
		return header{}, &FormatError{Reason: "empty node table"}
	}
	if h.rootOff < headerSize || h.rootOff > h.poolOff-h.nodeSize() ||
		(h.rootOff-headerSize)%h.nodeSize() != 0 {
		return header{}, &FormatError{Reason: "root offset outside node table"}
	}
	return h, nil
}

// putSlotOffset writes the target offset of a slot record.
func putSlotOffset(rec []byte, off uint32) {
	binary.LittleEndian.PutUint32(rec[4:8], off)
}

// putChecksum backpatches the header checksum field of a complete image.
func putChecksum(buf []byte, sum uint32) {
	binary.LittleEndian.PutUint32(buf[12:16], sum)
}

// levelWidth returns how many key bits the level starting with `remaining`
// unconsumed bits examines. Only the last level may be narrower than bits.
func levelWidth(bits uint8, remaining int) int {
	if remaining < int(bits) {
		return remaining
	}
	return int(bits)
}
