package api

import (
	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/server/router"
	"github.com/mealboard/marketplace/pkg/user"
)

// UserHandler serves the /user routes.
type UserHandler struct {
	svc *user.Service
}

func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Profile handles GET /user/:userId.
func (h *UserHandler) Profile(c router.Context) error {
	profile, err := h.svc.Profile(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, profile)
}

// Phone handles GET /user/phone/:userId. The body is the bare phone string.
func (h *UserHandler) Phone(c router.Context) error {
	phone, err := h.svc.Phone(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.OK(c, phone)
}
