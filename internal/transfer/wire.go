package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UploadRequest is the JSON body of a submit.
type UploadRequest struct {
	ProductName  *string       `json:"productName,omitempty"`
	Description  *string       `json:"des,omitempty"`
	ImagesBlob   []WireImage   `json:"imagesBlob" validate:"required,dive"`
	RemoveImages []WireRemoval `json:"removeImages,omitempty" validate:"dive"`
}

// WireImage is one entry of imagesBlob. Kind is optional for payloads from
// older clients; see ToDelta.
type WireImage struct {
	Order    int     `json:"order" validate:"gte=1"`
	Kind     Kind    `json:"kind,omitempty" validate:"omitempty,oneof=ref inline"`
	ID       string  `json:"id,omitempty"`
	Data     *string `json:"data,omitempty"`
	FileType string  `json:"fileType,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// WireRemoval names a stored image to delete.
type WireRemoval struct {
	ID string `json:"id" validate:"required"`
}

// UploadResponse is the body of a successful submit.
type UploadResponse struct {
	Message   string     `json:"message"`
	FilePaths []string   `json:"filePaths"`
	Images    []ImageRef `json:"images"`
}

// ImageRef identifies a stored image and its order.
type ImageRef struct {
	ID       string `json:"id"`
	Order    int    `json:"order"`
	URL      string `json:"url"`
	FileType string `json:"fileType,omitempty"`
}

// Metadata is the opaque product information sent with a delta.
type Metadata struct {
	ProductName *string
	Description *string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request shape and reports problems as
// ErrMalformedPayload.
func Validate(req *UploadRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrMalformedPayload)
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrMalformedPayload, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// kind resolves the entry's tag. Without an explicit kind, non-null data
// means inline and an id or imageUrl means reference.
func (w WireImage) kind() Kind {
	if w.Kind != "" {
		return w.Kind
	}
	if w.Data != nil {
		return KindInline
	}
	if w.ID != "" || w.ImageURL != "" {
		return KindReference
	}
	return ""
}

// ToDelta validates req and converts it into a Delta plus metadata.
func (req *UploadRequest) ToDelta() (Delta, Metadata, error) {
	if err := Validate(req); err != nil {
		return Delta{}, Metadata{}, err
	}

	d := Delta{Entries: make([]Entry, 0, len(req.ImagesBlob))}
	for i, w := range req.ImagesBlob {
		e := Entry{Order: w.Order, Kind: w.kind()}
		switch e.Kind {
		case KindInline:
			if w.Data != nil {
				e.Encoded = *w.Data
			}
			e.ContentType = w.FileType
		case KindReference:
			e.RefID = w.ID
		default:
			return Delta{}, Metadata{}, fmt.Errorf("%w: imagesBlob[%d] is neither a reference nor inline", ErrMalformedPayload, i)
		}
		d.Entries = append(d.Entries, e)
	}
	for _, r := range req.RemoveImages {
		d.Removals = append(d.Removals, r.ID)
	}

	if err := d.Check(); err != nil {
		return Delta{}, Metadata{}, err
	}
	return d, Metadata{ProductName: req.ProductName, Description: req.Description}, nil
}

// FromDelta builds the wire request for d. Every entry carries an explicit
// kind.
func FromDelta(meta Metadata, d Delta) *UploadRequest {
	req := &UploadRequest{
		ProductName:  meta.ProductName,
		Description:  meta.Description,
		ImagesBlob:   make([]WireImage, 0, len(d.Entries)),
		RemoveImages: make([]WireRemoval, 0, len(d.Removals)),
	}
	for _, e := range d.Entries {
		w := WireImage{Order: e.Order, Kind: e.Kind}
		switch e.Kind {
		case KindInline:
			data := e.Encoded
			w.Data = &data
			w.FileType = e.ContentType
		case KindReference:
			w.ID = e.RefID
		}
		req.ImagesBlob = append(req.ImagesBlob, w)
	}
	for _, id := range d.Removals {
		req.RemoveImages = append(req.RemoveImages, WireRemoval{ID: id})
	}
	return req
}

// Listing is the body of a product image listing. Clients hydrate from it.
type Listing struct {
	Product     string     `json:"product"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Images      []ImageRef `json:"images"`
}
