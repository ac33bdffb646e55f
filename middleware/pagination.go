/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studiooh/proposal-export-service/errors"
)

type paginationKey int

const (
	PaginateKey   paginationKey = iota
	defaultLimit  int           = 100
	defaultOffset int           = 0
)

// Paginate represents pagination parameters.
type Paginate struct {
	// Limit represents the number of items returned in the response.
	Limit int
	// Offset represents the starting index of the returned list of items.
	Offset int
}

// PaginatedResponse contains the paginated response data.
type PaginatedResponse[T any] struct {
	Meta  Meta  `json:"meta"`
	Links Links `json:"links"`
	Data  []T   `json:"data"`
}

// Meta represents the response metadata.
type Meta struct {
	// Count represents the number of total items the query generated.
	Count int `json:"count"`
}

// Links represents the first, next, previous, and last links of the paginated response.
type Links struct {
	First    string  `json:"first"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Last     *string `json:"last"`
}

// GetPaginatedResponse pages the full result set according to p.
func GetPaginatedResponse[T any](u *url.URL, p Paginate, data []T) (*PaginatedResponse[T], error) {
	if p.Limit < 0 || p.Offset < 0 {
		return nil, fmt.Errorf("invalid negative value for limit or offset")
	}

	page := []T{}
	if p.Offset < len(data) {
		page = data[p.Offset:min(p.Offset+p.Limit, len(data))]
	}
	return &PaginatedResponse[T]{
		Meta:  Meta{Count: len(data)},
		Links: getLinks(u, p, len(data)),
		Data:  page,
	}, nil
}

// link returns u with the given offset and limit, leaving u untouched.
func link(u *url.URL, limit, offset int) string {
	next := *u
	q := next.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	next.RawQuery = q.Encode()
	return next.String()
}

func getLinks(u *url.URL, p Paginate, count int) Links {
	result := Links{First: link(u, p.Limit, 0)}
	if count <= p.Limit && p.Offset == 0 {
		result.Last = &result.First
		return result
	}
	if p.Offset+p.Limit < count {
		next := link(u, p.Limit, p.Offset+p.Limit)
		result.Next = &next
	}
	if p.Offset > 0 {
		previous := link(u, p.Limit, max(p.Offset-p.Limit, 0))
		result.Previous = &previous
	}
	last := link(u, p.Limit, max(count-p.Limit, 0))
	result.Last = &last
	return result
}

// PaginationCtx is a middleware that parses the pagination settings from the url query
// and injects them as a Paginate object in the request context.
func PaginationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagination := Paginate{
			Limit:  defaultLimit,
			Offset: defaultOffset,
		}
		var err error
		if pagination.Limit, err = queryInt(r, "limit", defaultLimit); err != nil {
			errors.BadRequestError(w, r, err)
			return
		}
		if pagination.Offset, err = queryInt(r, "offset", defaultOffset); err != nil {
			errors.BadRequestError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), PaginateKey, pagination)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: %d", name, v)
	}
	return v, nil
}

// GetPagination is a helper function that returns the Paginate
// object stored in the request context.
func GetPagination(ctx context.Context) Paginate {
	return ctx.Value(PaginateKey).(Paginate)
}
