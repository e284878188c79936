package listing

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mealboard/marketplace/pkg/repository/document"
)

// Stored field names.
const (
	FieldSequenceNumber = "sequenceNumber"
	FieldTitle          = "title"
	FieldLocation       = "location"
	FieldPrice          = "price"
	FieldCategories     = "categories"
	FieldOwnerID        = "ownerId"
	FieldImagePreview   = "imagePreview"
	FieldThumbnails     = "imageThumbnails"
)

// Criteria is a parsed search request. Every set constraint must hold for a
// listing to match.
type Criteria struct {
	Categories []string
	// MatchAll requires every category instead of at least one.
	MatchAll bool
	MinPrice *float64
	MaxPrice *float64
	Title    string
	Location string
	OwnerID  string
	Sort     document.SortOrder
	Page     int
}

// Parser turns query parameters into Criteria.
type Parser struct {
	// Sentinel is the category whose presence switches to all-of matching
	Sentinel string
}

// Parse reads categories, match, minPrice, maxPrice, title, location, sort
// and page. Malformed prices and match values are rejected; a malformed
// page falls back to 1.
func (p Parser) Parse(values url.Values) (Criteria, error) {
	c := Criteria{
		Categories: SplitCategories(values.Get("categories")),
		Title:      strings.TrimSpace(values.Get("title")),
		Location:   strings.TrimSpace(values.Get("location")),
		Sort:       document.ParseSortOrder(values.Get("sort")),
		Page:       parsePage(values.Get("page")),
	}

	switch strings.ToLower(strings.TrimSpace(values.Get("match"))) {
	case "":
		c.MatchAll = p.Sentinel != "" && containsString(c.Categories, p.Sentinel)
	case "all":
		c.MatchAll = true
	case "any":
		c.MatchAll = false
	default:
		return Criteria{}, invalid("match", "match must be one of: all, any")
	}

	var err error
	if c.MinPrice, err = parseBound("minPrice", values.Get("minPrice")); err != nil {
		return Criteria{}, err
	}
	if c.MaxPrice, err = parseBound("maxPrice", values.Get("maxPrice")); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Filter renders the criteria as a MongoDB filter document.
func (c Criteria) Filter() document.Filter {
	filter := document.Filter{}
	if len(c.Categories) > 0 {
		op := "$in"
		if c.MatchAll {
			op = "$all"
		}
		filter[FieldCategories] = bson.M{op: c.Categories}
	}
	if c.MinPrice != nil || c.MaxPrice != nil {
		price := bson.M{}
		if c.MinPrice != nil {
			price["$gte"] = *c.MinPrice
		}
		if c.MaxPrice != nil {
			price["$lte"] = *c.MaxPrice
		}
		filter[FieldPrice] = price
	}
	if c.Title != "" {
		filter[FieldTitle] = primitive.Regex{Pattern: regexp.QuoteMeta(c.Title), Options: "i"}
	}
	if c.Location != "" {
		filter[FieldLocation] = primitive.Regex{Pattern: regexp.QuoteMeta(c.Location), Options: "i"}
	}
	if c.OwnerID != "" {
		filter[FieldOwnerID] = c.OwnerID
	}
	return filter
}

// Match evaluates the criteria against l in memory with the same semantics
// as Filter.
func (c Criteria) Match(l Listing) bool {
	if len(c.Categories) > 0 {
		if c.MatchAll && !containsAll(l.Categories, c.Categories) {
			return false
		}
		if !c.MatchAll && !containsAny(l.Categories, c.Categories) {
			return false
		}
	}
	if c.MinPrice != nil && l.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && l.Price > *c.MaxPrice {
		return false
	}
	if c.Title != "" && !containsFold(l.Title, c.Title) {
		return false
	}
	if c.Location != "" && !containsFold(l.Location, c.Location) {
		return false
	}
	if c.OwnerID != "" && l.OwnerID != c.OwnerID {
		return false
	}
	return true
}

// Pagination returns the page window for pageSize.
func (c Criteria) Pagination(pageSize int) document.Pagination {
	page := c.Page
	if page < 1 {
		page = 1
	}
	return document.Pagination{Page: page, PageSize: pageSize}
}

// QueryOptions combines filter, sequence ordering and the page window.
func (c Criteria) QueryOptions(pageSize int) document.QueryOptions {
	return document.QueryOptions{
		Filter:     c.Filter(),
		Sort:       document.Sort{Field: FieldSequenceNumber, Order: c.Sort},
		Pagination: c.Pagination(pageSize),
	}
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseBound(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, invalid(field, field+" must be a number")
	}
	return &value, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !containsString(have, w) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
