package model

import (
	"strings"
	"time"
)

// Product is the API-facing view of a catalog row.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	Image       *string   `json:"image"`
	Category    *string   `json:"category"`
	Stock       int64     `json:"stock"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductRecord mirrors a products row as stored. Optional columns keep
// their zero value when NULL.
type ProductRecord struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Image       string
	Category    string
	Stock       int64
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	Category string
	Featured *bool
	Search   string
}

// UploadsPrefix is the URL path under which stored images are served.
const UploadsPrefix = "/uploads/"

// IsAbsoluteURL reports whether ref already carries a scheme and host.
func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ResolveImage expands a stored image reference against base. Absolute
// references and an empty base are returned unchanged.
func ResolveImage(ref, base string) string {
	if ref == "" || IsAbsoluteURL(ref) || base == "" {
		return ref
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// View converts a stored record into the API representation.
func (r ProductRecord) View(imageBase string) Product {
	p := Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Stock:     r.Stock,
		Featured:  r.Featured,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	p.Description = optional(r.Description)
	p.Category = optional(r.Category)
	if r.Image != "" {
		resolved := ResolveImage(r.Image, imageBase)
		p.Image = &resolved
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
