package transfer

import (
	"fmt"
)

// Kind tags a delta entry as a reference to a stored image or an inline
// new image.
type Kind string

const (
	KindReference Kind = "ref"
	KindInline    Kind = "inline"
)

// Entry is one image of the submitted collection. Order is 1-based.
type Entry struct {
	Order       int
	Kind        Kind
	RefID       string
	Encoded     string
	ContentType string
}

// Delta is the complete submitted state of a collection.
type Delta struct {
	Entries  []Entry
	Removals []string
}

// Reference returns a reference entry.
func Reference(order int, refID string) Entry {
	return Entry{Order: order, Kind: KindReference, RefID: refID}
}

// Inline returns an inline entry holding data encoded with Encode.
func Inline(order int, data []byte, contentType string) Entry {
	return Entry{Order: order, Kind: KindInline, Encoded: Encode(data), ContentType: contentType}
}

// Check verifies the shape of the delta: every entry has a positive order
// and the fields its kind requires, no order is used twice, and no image is
// both kept and removed.
func (d Delta) Check() error {
	seen := make(map[int]struct{}, len(d.Entries))
	refs := make(map[string]struct{}, len(d.Entries))

	for i, e := range d.Entries {
		if e.Order < 1 {
			return fmt.Errorf("%w: entry %d has order %d", ErrMalformedPayload, i, e.Order)
		}
		switch e.Kind {
		case KindReference:
			if e.RefID == "" {
				return fmt.Errorf("%w: reference entry %d has no id", ErrMalformedPayload, i)
			}
			if _, dup := refs[e.RefID]; dup {
				return fmt.Errorf("%w: image %s referenced twice", ErrMalformedPayload, e.RefID)
			}
			refs[e.RefID] = struct{}{}
		case KindInline:
			if e.Encoded == "" || e.ContentType == "" {
				return fmt.Errorf("%w: inline entry %d needs data and fileType", ErrMalformedPayload, i)
			}
		default:
			return fmt.Errorf("%w: entry %d has unknown kind %q", ErrMalformedPayload, i, e.Kind)
		}
		if _, dup := seen[e.Order]; dup {
			return fmt.Errorf("%w: order %d", ErrDuplicateOrder, e.Order)
		}
		seen[e.Order] = struct{}{}
	}

	for _, id := range d.Removals {
		if id == "" {
			return fmt.Errorf("%w: removal without id", ErrMalformedPayload)
		}
		if _, kept := refs[id]; kept {
			return fmt.Errorf("%w: image %s is both kept and removed", ErrMalformedPayload, id)
		}
	}
	return nil
}
