// Package auth turns the external provider's bearer tokens into an
// authenticated User on the request context. Sessions and sign-in live with
// the provider; this package only verifies.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/jwt"
)

var ErrInvalidSubject = errors.New("auth: token subject is not a user id")

// User is the caller identity derived from a verified token.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// UserFromClaims requires the subject to be a UUID.
func UserFromClaims(c *jwt.Claims) (*User, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubject, c.Subject)
	}
	return &User{
		ID:    id,
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Name:  c.Name,
	}, nil
}
