package collection

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Origin tags where an item came from.
type Origin int

const (
	Persisted Origin = iota + 1
	Pending
)

func (o Origin) String() string {
	switch o {
	case Persisted:
		return "persisted"
	case Pending:
		return "pending"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Source yields the raw bytes of a pending item.
type Source interface {
	Open() (io.ReadCloser, error)
}

type bytesSource []byte

func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FileSource reads a pending item from disk when the delta is built.
type FileSource string

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

// Item is one entry of a collection.
type Item struct {
	ID          string
	Origin      Origin
	URL         string
	ContentType string
	source      Source
}

// PersistedItem describes an image already stored on the server.
type PersistedItem struct {
	ID          string
	URL         string
	ContentType string
}

// Upload describes a new local image for AddAll.
type Upload struct {
	Source      Source
	ContentType string
}

// Bytes wraps data as an Upload source. The slice is copied.
func Bytes(data []byte) Source {
	return bytesSource(bytes.Clone(data))
}

// Source returns the byte source of a pending item, or nil for a persisted one.
func (it Item) Source() Source {
	return it.source
}
