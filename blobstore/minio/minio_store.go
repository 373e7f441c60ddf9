// Package minio implements blobstore.BlobStore for MinIO and S3-compatible
// object storage.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/seqmap/blobstore"
)

// fetchPartSize is the ranged-GET granularity used when downloading a whole
// blob; parts are fetched concurrently.
const fetchPartSize = int64(8 << 20)

// fetchParallelism bounds concurrent ranged GETs per download.
const fetchParallelism = 4

// Store implements blobstore.BlobStore for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all blob names (e.g. "maps/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return &minioBlob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Put writes a blob in one shot.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{})
	return err
}

type minioBlob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err == nil && int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// Fetch downloads the whole blob with parallel ranged GETs.
// blobstore.ReadAll uses this path via ReadAt only for small blobs; callers
// pulling large images across the network should prefer Fetch.
func (b *minioBlob) Fetch(ctx context.Context) ([]byte, error) {
	buf := make([]byte, b.size)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for off := int64(0); off < b.size; off += fetchPartSize {
		g.Go(func() error {
			end := off + fetchPartSize
			if end > b.size {
				end = b.size
			}
			_, err := b.ReadAt(ctx, buf[off:end], off)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Bytes implements blobstore.Mappable by downloading the blob into an owned
// buffer. Unlike a local mapping this is a copy, but it lets callers treat
// remote and local blobs uniformly.
func (b *minioBlob) Bytes() ([]byte, error) {
	return b.Fetch(context.Background())
}

func (b *minioBlob) Close() error {
	return nil
}
