// Package filestore keeps each product's images as one directory of files
// named image-<order><ext>. A submit builds the complete new directory in
// staging and swaps it in with renames, so the live directory is always
// either the old layout or the new one.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	stagingDir = ".staging"
	trashDir   = ".trash"
)

// FileStore manages product image directories under a root directory.
type FileStore struct {
	root string
}

// SaveResult describes a file written to staging.
type SaveResult struct {
	Name     string
	Size     int64
	Checksum string
}

// New creates a FileStore rooted at root, creating the directory layout if
// needed.
func New(root string) (*FileStore, error) {
	for _, dir := range []string{root, filepath.Join(root, stagingDir), filepath.Join(root, trashDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Root returns the root directory.
func (s *FileStore) Root() string {
	return s.root
}

// ProductDir returns the live directory of a product.
func (s *FileStore) ProductDir(product string) string {
	return filepath.Join(s.root, product)
}

func (s *FileStore) stagingPath(txID string) string {
	return filepath.Join(s.root, stagingDir, txID)
}

func (s *FileStore) trashPath(txID string) string {
	return filepath.Join(s.root, trashDir, txID)
}

// FileName returns the storage name of the image at order.
func FileName(order int, contentType string) string {
	return fmt.Sprintf("image-%d%s", order, Extension(contentType))
}

// Extension maps a content type to a file extension.
func Extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

// List returns the file names in a product's live directory, sorted.
// A product without a directory has no files.
func (s *FileStore) List(product string) ([]string, error) {
	entries, err := os.ReadDir(s.ProductDir(product))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading product directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the contents of a file in a product's live directory.
func (s *FileStore) ReadFile(product, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.ProductDir(product), name))
}

// Staging is a directory that will become a product's new live directory.
type Staging struct {
	store *FileStore
	dir   string
	txID  string
}

// NewStaging creates an empty staging directory for a transaction.
func (s *FileStore) NewStaging(txID string) (*Staging, error) {
	dir := s.stagingPath(txID)
	if err := os.Mkdir(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Staging{store: s, dir: dir, txID: txID}, nil
}

// Dir returns the staging directory path.
func (st *Staging) Dir() string {
	return st.dir
}

// Write stores data under name, hashing it on the way.
// Pattern: temp file, write, fsync, rename.
func (st *Staging) Write(name string, r io.Reader) (*SaveResult, error) {
	fullPath := filepath.Join(st.dir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("syncing %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("renaming %s: %w", name, err)
	}

	return &SaveResult{
		Name:     name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Link places an existing live file of product into staging under name.
// It hard-links when possible and copies otherwise.
func (st *Staging) Link(product, srcName, name string) error {
	src := filepath.Join(st.store.ProductDir(product), srcName)
	dst := filepath.Join(st.dir, name)

	if err := os.Link(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copying %s to %s: %w", srcName, name, err)
	}
	return nil
}

// Swap makes staging the live directory of product. The previous live
// directory is moved to trash until Finish or Rollback; a product without
// one gets an empty directory there so Rollback can tell the swap happened.
func (s *FileStore) Swap(product string, st *Staging) error {
	live := s.ProductDir(product)

	if err := os.MkdirAll(live, 0o750); err != nil {
		return fmt.Errorf("creating live directory: %w", err)
	}
	if err := os.Rename(live, s.trashPath(st.txID)); err != nil {
		return fmt.Errorf("moving live directory aside: %w", err)
	}
	if err := os.Rename(st.dir, live); err != nil {
		return fmt.Errorf("moving staging into place: %w", err)
	}
	return nil
}

// Finish drops what a committed transaction left behind.
func (s *FileStore) Finish(txID string) error {
	if err := os.RemoveAll(s.trashPath(txID)); err != nil {
		return fmt.Errorf("removing trash: %w", err)
	}
	if err := os.RemoveAll(s.stagingPath(txID)); err != nil {
		return fmt.Errorf("removing staging: %w", err)
	}
	return nil
}

// Rollback returns product to the layout it had before txID, whatever
// point the transaction reached. Staging still present means the swap did
// not complete; trash present means the live directory was moved aside.
func (s *FileStore) Rollback(product, txID string) error {
	live := s.ProductDir(product)
	staging := s.stagingPath(txID)
	trash := s.trashPath(txID)

	staged := exists(staging)
	trashed := exists(trash)

	if trashed {
		if !staged {
			if err := os.RemoveAll(live); err != nil {
				return fmt.Errorf("removing swapped directory: %w", err)
			}
		}
		if err := os.Rename(trash, live); err != nil {
			return fmt.Errorf("restoring previous directory: %w", err)
		}
	}
	if staged {
		if err := os.RemoveAll(staging); err != nil {
			return fmt.Errorf("removing staging: %w", err)
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
