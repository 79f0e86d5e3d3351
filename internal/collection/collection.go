package collection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Mutation errors. A failed mutation returns the receiver unchanged.
var (
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrOutOfRange        = errors.New("position out of range")
	ErrUnsupportedType   = errors.New("unsupported content type")
	ErrAlreadyHydrated   = errors.New("collection already hydrated or edited")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrMissingIdentity   = errors.New("missing identity")
	ErrEmptySource       = errors.New("empty source")
)

// Config bounds a collection.
type Config struct {
	Capacity     int
	AllowedTypes []string
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		Capacity:     10,
		AllowedTypes: []string{"image/jpeg", "image/png"},
	}
}

// Collection is an immutable ordered set of items plus the persisted items
// removed since hydration. The zero value is not usable; call New.
type Collection struct {
	cfg      Config
	items    []Item
	removed  []Item
	hydrated bool
	touched  bool
}

// New returns an empty collection bounded by cfg. A non-positive capacity
// falls back to the default.
func New(cfg Config) Collection {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.AllowedTypes == nil {
		cfg.AllowedTypes = DefaultConfig().AllowedTypes
	}
	cfg.AllowedTypes = slices.Clone(cfg.AllowedTypes)
	return Collection{cfg: cfg}
}

// Len returns the number of items.
func (c Collection) Len() int {
	return len(c.items)
}

// At returns the item at position i.
func (c Collection) At(i int) (Item, error) {
	if i < 0 || i >= len(c.items) {
		return Item{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(c.items))
	}
	return c.items[i], nil
}

// Items returns a copy of the items in order.
func (c Collection) Items() []Item {
	return slices.Clone(c.items)
}

// Removed returns a copy of the removal set.
func (c Collection) Removed() []Item {
	return slices.Clone(c.removed)
}

// Hydrated reports whether Hydrate has been applied.
func (c Collection) Hydrated() bool {
	return c.hydrated
}

// IndexOf returns the position of the item with the given identity, or -1.
func (c Collection) IndexOf(id string) int {
	return slices.IndexFunc(c.items, func(it Item) bool { return it.ID == id })
}

// Hydrate loads the server's images in order and clears the removal set.
// It must be the first operation on a collection.
func (c Collection) Hydrate(items []PersistedItem) (Collection, error) {
	if c.hydrated || c.touched {
		return c, ErrAlreadyHydrated
	}
	if len(items) > c.cfg.Capacity {
		return c, fmt.Errorf("%w: %d items, capacity %d", ErrCapacityExceeded, len(items), c.cfg.Capacity)
	}

	seen := make(map[string]struct{}, len(items))
	next := make([]Item, 0, len(items))
	for i, p := range items {
		if p.ID == "" {
			return c, fmt.Errorf("%w: item %d", ErrMissingIdentity, i)
		}
		if _, dup := seen[p.ID]; dup {
			return c, fmt.Errorf("%w: %q", ErrDuplicateIdentity, p.ID)
		}
		seen[p.ID] = struct{}{}
		next = append(next, Item{ID: p.ID, Origin: Persisted, URL: p.URL, ContentType: p.ContentType})
	}

	out := c
	out.items = next
	out.removed = nil
	out.hydrated = true
	return out, nil
}

// Add appends a pending item holding a copy of data and returns its
// placeholder identity.
func (c Collection) Add(data []byte, contentType string) (Collection, string, error) {
	if len(data) == 0 {
		return c, "", ErrEmptySource
	}
	out, ids, err := c.AddAll([]Upload{{Source: Bytes(data), ContentType: contentType}})
	if err != nil {
		return c, "", err
	}
	return out, ids[0], nil
}

// AddFile appends a pending item whose bytes are read from path when the
// delta is built.
func (c Collection) AddFile(path, contentType string) (Collection, string, error) {
	out, ids, err := c.AddAll([]Upload{{Source: FileSource(path), ContentType: contentType}})
	if err != nil {
		return c, "", err
	}
	return out, ids[0], nil
}

// AddAll appends every upload, or none of them if the batch would exceed
// capacity or contains an unsupported type.
func (c Collection) AddAll(batch []Upload) (Collection, []string, error) {
	if len(c.items)+len(batch) > c.cfg.Capacity {
		return c, nil, fmt.Errorf("%w: %d + %d > %d", ErrCapacityExceeded, len(c.items), len(batch), c.cfg.Capacity)
	}
	for _, u := range batch {
		if !slices.Contains(c.cfg.AllowedTypes, u.ContentType) {
			return c, nil, fmt.Errorf("%w: %q", ErrUnsupportedType, u.ContentType)
		}
		if u.Source == nil {
			return c, nil, ErrEmptySource
		}
	}

	next := slices.Grow(slices.Clone(c.items), len(batch))
	ids := make([]string, 0, len(batch))
	for _, u := range batch {
		id := "pending-" + uuid.NewString()
		next = append(next, Item{ID: id, Origin: Pending, ContentType: u.ContentType, source: u.Source})
		ids = append(ids, id)
	}

	out := c
	out.items = next
	out.touched = true
	return out, ids, nil
}

// Remove drops the item at position. A persisted item joins the removal set.
func (c Collection) Remove(position int) (Collection, error) {
	if position < 0 || position >= len(c.items) {
		return c, fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(c.items))
	}

	gone := c.items[position]
	out := c
	out.items = slices.Delete(slices.Clone(c.items), position, position+1)
	if gone.Origin == Persisted {
		out.removed = append(slices.Clone(c.removed), gone)
	}
	out.touched = true
	return out, nil
}

// Reorder moves the item at from so that it ends up at position to. Both
// indexes address the current sequence, so to == Len()-1 makes it last.
func (c Collection) Reorder(from, to int) (Collection, error) {
	n := len(c.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return c, fmt.Errorf("%w: move %d to %d of %d", ErrOutOfRange, from, to, n)
	}

	moved := c.items[from]
	next := slices.Delete(slices.Clone(c.items), from, from+1)
	next = slices.Insert(next, to, moved)

	out := c
	out.items = next
	out.touched = true
	return out, nil
}
