package seqmap

import "github.com/hupe1980/seqmap/codec"

type builderOptions struct {
	logger *Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderOptions)

// WithLogger sets the logger used for build diagnostics.
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) BuilderOption {
	return func(o *builderOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

type mapOptions struct {
	verify bool
}

// MapOption configures map attachment behavior.
type MapOption func(*mapOptions)

// WithVerify makes NewMap run a full checksum verification before returning.
// This trades the O(1) attach guarantee for end-to-end corruption detection;
// use it when the bytes come from storage you do not trust.
func WithVerify() MapOption {
	return func(o *mapOptions) {
		o.verify = true
	}
}

type fileOptions struct {
	compressor codec.Compressor
	verify     bool
	logger     *Logger
}

// FileOption configures image container reads and writes.
type FileOption func(*fileOptions)

// WithCompressor selects the compressor used when writing an image container.
// If nil is passed, codec.Default (no compression) is used. Readers ignore
// this option: the container header names its codec.
func WithCompressor(c codec.Compressor) FileOption {
	return func(o *fileOptions) {
		if c == nil {
			c = codec.Default
		}
		o.compressor = c
	}
}

// WithFileVerify makes container readers verify the image checksum after
// decoding, in addition to the container CRC check.
func WithFileVerify() FileOption {
	return func(o *fileOptions) {
		o.verify = true
	}
}

// WithFileLogger sets the logger used for container diagnostics.
func WithFileLogger(l *Logger) FileOption {
	return func(o *fileOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
