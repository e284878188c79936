// Package listing implements the marketplace catalog: listing search with
// filtering, sorting and pagination, sequence number allocation, partial
// updates and owner-scoped views.
package listing

import (
	"math"
	"strings"
)

// Listing is a product offered by a user.
type Listing struct {
	ID string `json:"id"`
	// SequenceNumber orders listings by creation. It is unique and rendered
	// as a string to clients.
	SequenceNumber  int64    `json:"sequenceNumber,string"`
	Title           string   `json:"title"`
	Location        string   `json:"location"`
	Price           float64  `json:"price"`
	Categories      []string `json:"categories"`
	OwnerID         string   `json:"ownerId"`
	ImagePreview    string   `json:"imagePreview,omitempty"`
	ImageThumbnails []string `json:"imageThumbnails,omitempty"`
}

// Owner is the public part of a user joined onto listing views.
type Owner struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
}

// Detail is a single listing joined with its owner. Owner is nil when the
// referenced user no longer exists.
type Detail struct {
	Listing
	Owner *Owner `json:"owner"`
}

// Page is one window of a search result. Total counts every match of the
// filter, not only the returned items.
type Page struct {
	Total int64     `json:"totalProducts"`
	Items []Listing `json:"productsRaw"`
}

// OwnerPage is a page of one user's listings with the user's first name.
type OwnerPage struct {
	Page
	FirstName string `json:"firstname"`
}

// Draft holds the fields supplied when creating a listing.
type Draft struct {
	Title      string
	Location   string
	Price      float64
	Categories []string
	OwnerID    string
}

// Validate checks the draft before a sequence number is allocated.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "title is required")
	}
	if err := validatePrice(d.Price); err != nil {
		return err
	}
	if len(d.Categories) == 0 {
		return invalid("categories", "at least one category is required")
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return invalid("userId", "userId is required")
	}
	return nil
}

// FieldsPatch lists the listing fields a field update may overwrite. Nil
// fields are left untouched.
type FieldsPatch struct {
	Title      *string
	Location   *string
	Price      *float64
	Categories []string
}

// Empty reports whether the patch changes nothing.
func (p FieldsPatch) Empty() bool {
	return p.Title == nil && p.Location == nil && p.Price == nil && p.Categories == nil
}

// Validate rejects values that would break a listing's invariants.
func (p FieldsPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "title cannot be empty")
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return err
		}
	}
	if p.Categories != nil && len(p.Categories) == 0 {
		return invalid("categories", "categories cannot be empty")
	}
	return nil
}

// Apply merges the patch into l.
func (p FieldsPatch) Apply(l *Listing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Categories != nil {
		l.Categories = append([]string(nil), p.Categories...)
	}
}

// ImagesPatch replaces a listing's images. The first image becomes the
// preview and every image is kept as a thumbnail.
type ImagesPatch struct {
	Preview    string
	Thumbnails []string
}

// NewImagesPatch builds a patch from uploaded image locators.
func NewImagesPatch(images []string) (ImagesPatch, error) {
	cleaned := make([]string, 0, len(images))
	for _, image := range images {
		if image = strings.TrimSpace(image); image != "" {
			cleaned = append(cleaned, image)
		}
	}
	if len(cleaned) == 0 {
		return ImagesPatch{}, invalid("images", "at least one image is required")
	}
	return ImagesPatch{Preview: cleaned[0], Thumbnails: cleaned}, nil
}

// Apply merges the patch into l.
func (p ImagesPatch) Apply(l *Listing) {
	l.ImagePreview = p.Preview
	l.ImageThumbnails = append([]string(nil), p.Thumbnails...)
}

// SplitCategories splits a comma separated list, trimming blanks.
func SplitCategories(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return invalid("price", "price must be a non-negative number")
	}
	return nil
}
