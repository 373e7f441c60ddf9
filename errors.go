package seqmap

import "fmt"

// ConfigError indicates an invalid bits configuration at Builder construction.
// It is fatal and surfaced immediately; there is no degraded mode.
type ConfigError struct {
	Bits int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("seqmap: invalid bits %d (want %d..%d)", e.Bits, MinBits, MaxBits)
}

// FormatError indicates that a buffer does not carry a compatible image:
// wrong magic, unsupported version, or structurally inconsistent header
// fields. No partial view is ever returned.
type FormatError struct {
	Reason  string
	Version uint16 // set when Reason concerns the version field
}

func (e *FormatError) Error() string {
	if e.Version != 0 {
		return fmt.Sprintf("seqmap: invalid image: %s (%d)", e.Reason, e.Version)
	}
	return "seqmap: invalid image: " + e.Reason
}

// TruncatedError indicates that the extents declared by an image or container
// header exceed the supplied buffer. It is reported at attach time, never
// lazily during Get, so every successfully constructed Map is memory-safe to
// query for its entire lifetime.
type TruncatedError struct {
	Need uint64
	Have uint64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("seqmap: truncated image: need %d bytes, have %d", e.Need, e.Have)
}

// ChecksumMismatchError is returned by Map.Verify and by the image file
// reader when the stored CRC32 does not match the payload.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("seqmap: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}
