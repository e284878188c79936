// Package user serves the read side of marketplace users. Phone numbers
// and password hashes are only loaded by the lookups that need them.
package user

import (
	"regexp"
	"strings"

	"github.com/mealboard/marketplace/pkg/controller"
)

var (
	ErrNotFound        = controller.NewError(controller.KindNotFound, "user.not_found", "user not found")
	ErrInvalidArgument = controller.NewError(controller.KindInvalidArgument, "user.invalid_argument", "invalid user")
	ErrEmailTaken      = controller.NewError(controller.KindConflict, "user.email_taken", "email address already registered")
)

// User is the stored account. PasswordHash and Phone never serialize to JSON.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Phone        string `json:"-"`
}

// Profile is the public projection of a user.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

// Profile drops the private fields.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

var emailPattern = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

// ValidEmail reports whether email has the shape of an RFC address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks the fields required to store a user.
func (u User) Validate() error {
	if !ValidEmail(strings.TrimSpace(u.Email)) {
		return ErrInvalidArgument.
			WithMessage("email " + u.Email + " is not a valid RFC address").
			WithDetails(map[string]interface{}{"field": "email"})
	}
	if u.PasswordHash == "" {
		return ErrInvalidArgument.
			WithMessage("password hash is required").
			WithDetails(map[string]interface{}{"field": "passwordHash"})
	}
	return nil
}
