package seqmap

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"path/filepath"

	"github.com/hupe1980/seqmap/blobstore"
	"github.com/hupe1980/seqmap/codec"
	"github.com/hupe1980/seqmap/internal/mmap"
)

// Image container: a self-describing envelope for images at rest. Images are
// directly queryable bytes, so the envelope's only jobs are naming the codec
// that wrapped the payload and catching storage corruption.
//
//	[0:4]   magic "SQMF"
//	[4:6]   container version
//	[6]     codec name length
//	[7:...] codec name
//	[+8]    raw image length
//	[+4]    CRC32 (IEEE) of the raw image
//	[+8]    payload length
//	[...]   payload (raw image, possibly compressed)
//
// With the "none" codec the payload *is* the image, which keeps the
// mmap-then-query path zero-copy.
const (
	containerMagic   = "SQMF"
	containerVersion = uint16(1)
)

// ImageFile couples a Map with the resource backing its bytes.
type ImageFile struct {
	// Map is the attached lookup view.
	Map *Map

	closer io.Closer
}

// Close releases the backing resource (file mapping or blob handle).
// The Map must not be used afterwards.
func (f *ImageFile) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// EncodeContainer wraps an image in a container envelope.
func EncodeContainer(image []byte, opts ...FileOption) ([]byte, error) {
	o := fileOptions{compressor: codec.Default, logger: NoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := o.compressor.Compress(image)
	if err != nil {
		return nil, err
	}

	name := o.compressor.Name()
	buf := make([]byte, 0, 7+len(name)+20+len(payload))
	buf = append(buf, containerMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, containerVersion)
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(image)))
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(image))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(payload)))
	buf = append(buf, payload...)

	o.logger.Debug("container encoded",
		"codec", name,
		"image_bytes", len(image),
		"payload_bytes", len(payload),
	)
	return buf, nil
}

// DecodeContainer unwraps a container and returns the raw image. The second
// result reports whether the image aliases data (true only for the "none"
// codec); callers that need the image to outlive data must copy it then.
func DecodeContainer(data []byte) ([]byte, bool, error) {
	if len(data) < 7 {
		return nil, false, &TruncatedError{Need: 7, Have: uint64(len(data))}
	}
	if string(data[0:4]) != containerMagic {
		return nil, false, &FormatError{Reason: "bad container magic"}
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != containerVersion {
		return nil, false, &FormatError{Reason: "unsupported container version", Version: v}
	}
	nameLen := int(data[6])
	rest := data[7:]
	if len(rest) < nameLen+20 {
		return nil, false, &TruncatedError{Need: uint64(7 + nameLen + 20), Have: uint64(len(data))}
	}
	name := string(rest[:nameLen])
	rest = rest[nameLen:]

	imageLen := binary.LittleEndian.Uint64(rest[0:8])
	imageSum := binary.LittleEndian.Uint32(rest[8:12])
	payloadLen := binary.LittleEndian.Uint64(rest[12:20])
	rest = rest[20:]
	// imageLen reaches the codec as an int allocation size, so an impossible
	// value is rejected here rather than handed to make.
	if imageLen > math.MaxInt {
		return nil, false, &FormatError{Reason: "container image length out of range"}
	}
	if uint64(len(rest)) < payloadLen {
		return nil, false, &TruncatedError{Need: payloadLen, Have: uint64(len(rest))}
	}
	payload := rest[:payloadLen]

	c, ok := codec.ByName(name)
	if !ok {
		return nil, false, &FormatError{Reason: "unknown container codec " + name}
	}
	image, err := c.Decompress(payload, int(imageLen))
	if err != nil {
		return nil, false, err
	}
	if uint64(len(image)) != imageLen {
		return nil, false, &TruncatedError{Need: imageLen, Have: uint64(len(image))}
	}
	if sum := crc32.ChecksumIEEE(image); sum != imageSum {
		return nil, false, &ChecksumMismatchError{Expected: imageSum, Actual: sum}
	}

	_, zeroCopy := c.(codec.None)
	return image, zeroCopy, nil
}

// WriteTo writes an image as a container to w.
func WriteTo(w io.Writer, image []byte, opts ...FileOption) (int64, error) {
	buf, err := EncodeContainer(image, opts...)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// WriteFile writes an image as a container file, atomically (temp + rename).
func WriteFile(path string, image []byte, opts ...FileOption) error {
	buf, err := EncodeContainer(image, opts...)
	if err != nil {
		return err
	}
	store := blobstore.NewLocalStore(filepath.Dir(path))
	return store.Put(context.Background(), filepath.Base(path), buf)
}

// ReadFrom reads a container from r and attaches a Map to the image.
// The image is held in an owned buffer; the returned ImageFile needs no
// Close (it is a no-op) but keeps the uniform shape.
func ReadFrom(r io.Reader, opts ...FileOption) (*ImageFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return attachContainer(data, nil, opts...)
}

// OpenFile memory-maps a container file and attaches a Map. Uncompressed
// containers are queried directly out of the mapping with no copy; the
// caller must Close the returned ImageFile to release the mapping.
func OpenFile(path string, opts ...FileOption) (*ImageFile, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := attachContainer(m.Bytes(), m, opts...)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return f, nil
}

// OpenBlob reads a container from a blob store and attaches a Map. Local
// (mappable) blobs stay zero-copy for uncompressed containers.
func OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, opts ...FileOption) (*ImageFile, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, blob, blob.Size())
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	f, err := attachContainer(data, blob, opts...)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return f, nil
}

// attachContainer decodes data and builds the ImageFile. closer is retained
// only when the image still aliases the backing resource.
func attachContainer(data []byte, closer io.Closer, opts ...FileOption) (*ImageFile, error) {
	o := fileOptions{logger: NoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	image, zeroCopy, err := DecodeContainer(data)
	if err != nil {
		return nil, err
	}

	var mapOpts []MapOption
	if o.verify {
		mapOpts = append(mapOpts, WithVerify())
	}
	m, err := NewMap(image, mapOpts...)
	if err != nil {
		return nil, err
	}

	f := &ImageFile{Map: m}
	if zeroCopy {
		f.closer = closer
	} else if closer != nil {
		if err := closer.Close(); err != nil {
			return nil, err
		}
	}
	o.logger.Debug("container attached",
		"bits", m.Bits(),
		"image_bytes", len(image),
		"zero_copy", zeroCopy && closer != nil,
	)
	return f, nil
}
