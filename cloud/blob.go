/*
Copyright © 2022 the covidsat authors.
This file is part of covidsat.

covidsat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

covidsat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with covidsat.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
)

// Download copies the blob at loc into w and returns the number of bytes
// copied.
func Download(ctx context.Context, w io.Writer, loc string) (int64, error) {
	bucketName, key, err := Split(loc)
	if err != nil {
		return 0, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return 0, err
	}
	defer bucket.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return n, nil
}

// writeBlob writes the contents of r to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

// Uploader copies local output files into a bucket, keeping their paths
// relative to a local root directory.
type Uploader struct {
	bucket *blob.Bucket
	prefix string
	root   string
}

// NewUploader opens the bucket at dest (e.g. "s3://bucket/prefix") for
// files under the local directory root.
func NewUploader(ctx context.Context, dest, root string) (*Uploader, error) {
	if !IsBlob(dest) {
		return nil, fmt.Errorf("cloud: upload destination %s is not a blob location", dest)
	}
	bucketName, prefix, err := Split(strings.TrimRight(dest, "/") + "/x")
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	return &Uploader{bucket: bucket, prefix: path.Dir(prefix), root: root}, nil
}

// Key returns the blob key that the local file will be uploaded to.
func (u *Uploader) Key(file string) (string, error) {
	rel, err := filepath.Rel(u.root, file)
	if err != nil {
		return "", fmt.Errorf("cloud: %s is not under %s: %v", file, u.root, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("cloud: %s is not under %s", file, u.root)
	}
	return path.Join(u.prefix, filepath.ToSlash(rel)), nil
}

// Upload copies the local file into the bucket.
func (u *Uploader) Upload(ctx context.Context, file string) error {
	key, err := u.Key(file)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("cloud: opening %s for upload: %v", file, err)
	}
	defer f.Close()
	return writeBlob(ctx, u.bucket, key, f)
}

// Close closes the bucket.
func (u *Uploader) Close() error { return u.bucket.Close() }
