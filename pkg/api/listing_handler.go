package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/listing"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// ListingHandler serves the /products and /product routes.
type ListingHandler struct {
	svc *listing.Service
}

func NewListingHandler(svc *listing.Service) *ListingHandler {
	return &ListingHandler{svc: svc}
}

// fieldsView is the projection echoed by a field update.
type fieldsView struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Location   string   `json:"location"`
	Price      float64  `json:"price"`
	Categories []string `json:"categories"`
}

// imagesView adds the image locators to fieldsView.
type imagesView struct {
	fieldsView
	ImagePreview    string   `json:"imagePreview"`
	ImageThumbnails []string `json:"imageThumbnails"`
}

func newFieldsView(l *listing.Listing) fieldsView {
	return fieldsView{ID: l.ID, Title: l.Title, Location: l.Location, Price: l.Price, Categories: l.Categories}
}

type imagesRequest struct {
	Images []string `json:"images" validate:"required"`
}

// Search handles GET /products.
func (h *ListingHandler) Search(c router.Context) error {
	criteria, err := h.svc.ParseCriteria(c.Request().URL.Query())
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := h.svc.Search(c.Request().Context(), criteria)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, page)
}

// Categories handles GET /products/categories.
func (h *ListingHandler) Categories(c router.Context) error {
	return controller.OK(c, h.svc.Categories())
}

// Get handles GET /product/:productId.
func (h *ListingHandler) Get(c router.Context) error {
	detail, err := h.svc.Get(c.Request().Context(), c.Param("productId"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, detail)
}

// ListByOwner handles GET /products/user/:userId.
func (h *ListingHandler) ListByOwner(c router.Context) error {
	criteria, err := h.svc.ParseCriteria(c.Request().URL.Query())
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := h.svc.ListByOwner(c.Request().Context(), c.Param("userId"), criteria)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, page)
}

// Create handles POST /product/new. Fields come from the query string and
// the response is the new listing id.
func (h *ListingHandler) Create(c router.Context) error {
	q := c.Request().URL.Query()
	price, err := parsePrice(q.Get("price"))
	if err != nil {
		return controller.Error(c, err)
	}
	rawCategories := q.Get("categories")
	if rawCategories == "" {
		rawCategories = q.Get("category")
	}

	id, err := h.svc.Create(c.Request().Context(), listing.Draft{
		Title:      strings.TrimSpace(q.Get("title")),
		Location:   strings.TrimSpace(q.Get("location")),
		Price:      price,
		Categories: listing.SplitCategories(rawCategories),
		OwnerID:    strings.TrimSpace(q.Get("userId")),
	})
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, id)
}

// UpdateFields handles PUT /product/update/:productId. Only the query
// parameters present in the request are written.
func (h *ListingHandler) UpdateFields(c router.Context) error {
	patch, err := fieldsPatchFromQuery(c.Request().URL.Query())
	if err != nil {
		return controller.Error(c, err)
	}
	l, err := h.svc.UpdateFields(c.Request().Context(), c.Param("productId"), patch)
	if err != nil {
		return controller.Error(c, missingAsBadRequest(err))
	}
	return controller.OK(c, newFieldsView(l))
}

// UpdateImages handles PUT /product/updateImages/:productId.
func (h *ListingHandler) UpdateImages(c router.Context) error {
	var req imagesRequest
	if err := c.Bind(&req); err != nil {
		return controller.Error(c, listing.ErrInvalidArgument.
			WithMessage("request body must be a JSON object with an images array").
			WithCause(err))
	}
	if err := controller.ValidateDTO(&req); err != nil {
		return controller.Error(c, err)
	}
	l, err := h.svc.UpdateImages(c.Request().Context(), c.Param("productId"), req.Images)
	if err != nil {
		return controller.Error(c, missingAsBadRequest(err))
	}
	return controller.OK(c, imagesView{
		fieldsView:      newFieldsView(l),
		ImagePreview:    l.ImagePreview,
		ImageThumbnails: l.ImageThumbnails,
	})
}

// Delete handles DELETE /product/delete/:productId and answers with the
// deleted id.
func (h *ListingHandler) Delete(c router.Context) error {
	id := c.Param("productId")
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, id)
}

func fieldsPatchFromQuery(q url.Values) (listing.FieldsPatch, error) {
	var patch listing.FieldsPatch
	if q.Has("title") {
		title := strings.TrimSpace(q.Get("title"))
		patch.Title = &title
	}
	if q.Has("location") {
		location := strings.TrimSpace(q.Get("location"))
		patch.Location = &location
	}
	if q.Has("price") {
		price, err := parsePrice(q.Get("price"))
		if err != nil {
			return patch, err
		}
		patch.Price = &price
	}
	if q.Has("categories") {
		patch.Categories = listing.SplitCategories(q.Get("categories"))
		if patch.Categories == nil {
			patch.Categories = []string{}
		}
	}
	return patch, nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, listing.ErrInvalidArgument.
			WithMessage("price must be a number").
			WithDetails(map[string]interface{}{"field": "price"})
	}
	return price, nil
}

// missingAsBadRequest answers update routes with 400 for unknown listings.
func missingAsBadRequest(err error) error {
	var appErr *controller.AppError
	if errors.As(err, &appErr) && appErr.Kind == controller.KindNotFound {
		return appErr.WithHTTPStatus(http.StatusBadRequest)
	}
	return err
}
