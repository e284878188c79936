package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mealboard/marketplace/pkg/listing"
	"github.com/mealboard/marketplace/pkg/user"
)

// Fixtures is the YAML document read by the seed command:
//
//	users:
//	  - firstname: Ada
//	    email: ada@example.com
//	    passwordHash: $2a$10$...
//	    phone: "+33102030405"
//	    listings:
//	      - title: Chili
//	        location: Paris
//	        price: 12
//	        categories: [Beef, Starter]
//	        images: [chili.jpg]
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
}

type UserFixture struct {
	FirstName    string           `yaml:"firstname"`
	LastName     string           `yaml:"lastname"`
	Email        string           `yaml:"email"`
	PasswordHash string           `yaml:"passwordHash"`
	Phone        string           `yaml:"phone"`
	Listings     []ListingFixture `yaml:"listings"`
}

type ListingFixture struct {
	Title      string   `yaml:"title"`
	Location   string   `yaml:"location"`
	Price      float64  `yaml:"price"`
	Categories []string `yaml:"categories"`
	Images     []string `yaml:"images"`
}

// SeedReport counts what a seed run created or skipped.
type SeedReport struct {
	Users        int
	Listings     int
	SkippedUsers int
}

// LoadFixtures decodes a fixtures document. Unknown keys are rejected.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixtures document is empty")
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// Seed registers each fixture user and creates their listings. Users whose
// email is already registered are skipped together with their listings, so
// running the same file twice creates nothing new.
func (a *App) Seed(ctx context.Context, f *Fixtures) (SeedReport, error) {
	var report SeedReport
	if err := a.Listings.SyncSequence(ctx); err != nil {
		return report, fmt.Errorf("sync listing sequence: %w", err)
	}

	for i, uf := range f.Users {
		ownerID, err := a.Users.Register(ctx, user.User{
			FirstName:    uf.FirstName,
			LastName:     uf.LastName,
			Email:        uf.Email,
			PasswordHash: uf.PasswordHash,
			Phone:        uf.Phone,
		})
		if errors.Is(err, user.ErrEmailTaken) {
			a.Logger.Warn("fixture user already registered, skipping", "email", uf.Email)
			report.SkippedUsers++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("users[%d]: %w", i, err)
		}
		report.Users++

		for j, lf := range uf.Listings {
			id, err := a.Listings.Create(ctx, listing.Draft{
				Title:      lf.Title,
				Location:   lf.Location,
				Price:      lf.Price,
				Categories: lf.Categories,
				OwnerID:    ownerID,
			})
			if err != nil {
				return report, fmt.Errorf("users[%d].listings[%d]: %w", i, j, err)
			}
			if len(lf.Images) > 0 {
				if _, err := a.Listings.UpdateImages(ctx, id, lf.Images); err != nil {
					return report, fmt.Errorf("users[%d].listings[%d] images: %w", i, j, err)
				}
			}
			report.Listings++
		}
	}

	a.Logger.Info("fixtures loaded", "users", report.Users, "listings", report.Listings, "skipped_users", report.SkippedUsers)
	return report, nil
}
