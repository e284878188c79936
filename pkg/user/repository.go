package user

import "context"

// Repository loads and stores users.
type Repository interface {
	// Profile loads the public fields only.
	Profile(ctx context.Context, id string) (*Profile, error)
	// Phone loads the phone number only.
	Phone(ctx context.Context, id string) (string, error)
	Insert(ctx context.Context, u *User) (string, error)
}
