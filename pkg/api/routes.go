// Package api exposes the marketplace HTTP routes on the router abstraction.
package api

import "github.com/mealboard/marketplace/pkg/server/router"

// Handlers groups the route handlers registered by Register.
type Handlers struct {
	Listings *ListingHandler
	Users    *UserHandler
}

// Register mounts the public routes on r. writeMiddleware wraps the routes
// that create, change or delete listings.
func Register(r router.Router, h Handlers, writeMiddleware ...router.MiddlewareFunc) {
	r.GET("/products", h.Listings.Search)
	r.GET("/products/categories", h.Listings.Categories)
	r.GET("/products/user/:userId", h.Listings.ListByOwner)
	r.GET("/product/:productId", h.Listings.Get)

	r.POST("/product/new", h.Listings.Create, writeMiddleware...)
	r.PUT("/product/update/:productId", h.Listings.UpdateFields, writeMiddleware...)
	r.PUT("/product/updateImages/:productId", h.Listings.UpdateImages, writeMiddleware...)
	r.DELETE("/product/delete/:productId", h.Listings.Delete, writeMiddleware...)

	r.GET("/user/phone/:userId", h.Users.Phone)
	r.GET("/user/:userId", h.Users.Profile)
}
