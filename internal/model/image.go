package model

import "time"

// Image is one persisted entry of a product's ordered image collection.
type Image struct {
	ID          string    `json:"id"`
	Product     string    `json:"product"`
	Order       int       `json:"order"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product holds the opaque metadata submitted alongside a product's images.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	LastTx      string    `json:"last_tx,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultProduct is the product that the legacy /upload endpoint writes to.
const DefaultProduct = "default"

// ValidProductID reports whether id is usable as a product key and
// directory name: 1-64 ASCII letters, digits, '-' or '_'.
func ValidProductID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
