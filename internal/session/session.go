// Package session works out who is using the client. The backend is the
// authority on identity; token claims are only read, never verified, and
// serve as a fallback when the backend cannot be asked.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/model"
)

// Display names used when the identity carries no user name.
const (
	FallbackUserName  = "You"
	FallbackStaffName = "Staff"
)

var ErrNoToken = errors.New("session: no token")

type claims struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// FromToken reads the identity claims of a bearer token without checking its
// signature.
func FromToken(token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("session: decode token: %w", err)
	}
	name := c.UserName
	if name == "" {
		name = c.Subject
	}
	return &model.Identity{UserName: name, Email: c.Email, Role: model.ActorRole(c.Role)}, nil
}

// Resolve asks the backend who the token belongs to and falls back to the
// token's own claims when the backend is unreachable. An auth rejection from
// the backend is final.
func Resolve(ctx context.Context, client *directory.Client) (*model.Identity, error) {
	me, err := client.Me(ctx)
	if err == nil && me.UserName != "" {
		if me.Role == "" {
			if fromToken, tokenErr := FromToken(client.Token()); tokenErr == nil {
				me.Role = fromToken.Role
			}
		}
		return me, nil
	}
	if err != nil && directory.IsKind(err, directory.KindAuth) {
		return nil, err
	}

	id, tokenErr := FromToken(client.Token())
	if tokenErr != nil || id.UserName == "" {
		cause := err
		if cause == nil {
			cause = tokenErr
		}
		return nil, &directory.Error{Kind: directory.KindAuth, Op: "me", Message: "not logged in", Err: cause}
	}
	return id, nil
}

// DisplayName is the sender name used for outgoing messages.
func DisplayName(id *model.Identity, staff bool) string {
	if id != nil && id.UserName != "" {
		return id.UserName
	}
	if staff {
		return FallbackStaffName
	}
	return FallbackUserName
}

// Sign issues an HS256 token carrying identity claims. The development relay
// and tests use it; production tokens come from the backend.
func Sign(secret string, id model.Identity, registered jwt.RegisteredClaims) (string, error) {
	if registered.Subject == "" {
		registered.Subject = id.UserName
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserName:         id.UserName,
		Email:            id.Email,
		Role:             string(id.Role),
		RegisteredClaims: registered,
	}).SignedString([]byte(secret))
}

// Verify checks an HS256 token against secret and returns its identity.
func Verify(secret, token string) (*model.Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("session: invalid token")
	}
	name := c.UserName
	if name == "" {
		name = c.Subject
	}
	if name == "" {
		return nil, errors.New("session: token has no subject")
	}
	return &model.Identity{UserName: name, Email: c.Email, Role: model.ActorRole(c.Role)}, nil
}
