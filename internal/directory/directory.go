// Package directory fetches and submits QueryNest queries on behalf of the
// current actor.
package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/model"
)

type Directory struct {
	client  *Client
	roleTag string
	logger  zerolog.Logger
}

// New builds a directory. roleTag is the team a staff actor works for; only
// queries carrying it are shown to staff.
func New(client *Client, roleTag string, logger zerolog.Logger) *Directory {
	return &Directory{
		client:  client,
		roleTag: roleTag,
		logger:  logger.With().Str("component", "directory").Logger(),
	}
}

func (d *Directory) Client() *Client { return d.client }

func (d *Directory) RoleTag() string { return d.roleTag }

// Fetch returns the queries visible to an actor of the given role.
func (d *Directory) Fetch(ctx context.Context, role model.ActorRole) ([]model.Query, error) {
	queries, err := d.client.MyQueries(ctx)
	if err != nil {
		return nil, err
	}
	if role != model.ActorStaff {
		return queries, nil
	}

	filtered := make([]model.Query, 0, len(queries))
	for _, q := range queries {
		if q.HasTag(d.roleTag) {
			filtered = append(filtered, q)
		}
	}
	d.logger.Debug().
		Str("role_tag", d.roleTag).
		Int("total", len(queries)).
		Int("visible", len(filtered)).
		Msg("filtered queries for staff")
	return filtered, nil
}

// Submit validates and sends a new query. Validation failures never reach the
// backend.
func (d *Directory) Submit(ctx context.Context, categories []string, message string) error {
	req, err := ValidateSubmission(categories, message)
	if err != nil {
		return err
	}
	if err := d.client.AddQuery(ctx, req); err != nil {
		return err
	}
	d.logger.Info().Strs("categories", req.Categories).Msg("query submitted")
	return nil
}

// ValidateSubmission checks a query form and returns the request to send.
func ValidateSubmission(categories []string, message string) (model.AddQueryRequest, error) {
	message = strings.TrimSpace(message)

	var picked []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(picked, c) {
			continue
		}
		picked = append(picked, c)
	}

	if len(picked) == 0 || message == "" {
		return model.AddQueryRequest{}, validationError("add-query", ErrMissingFields)
	}
	for _, c := range picked {
		if !slices.Contains(model.CategoryOptions, c) {
			return model.AddQueryRequest{}, validationError("add-query", "unknown category "+c)
		}
	}
	if utf8.RuneCountInString(message) > model.MaxQueryMessageLength {
		return model.AddQueryRequest{}, validationError("add-query",
			fmt.Sprintf("message is longer than %d characters", model.MaxQueryMessageLength))
	}
	return model.AddQueryRequest{Categories: picked, Message: message}, nil
}
