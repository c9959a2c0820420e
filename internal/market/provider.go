// Package market answers market clock and symbol lookups for the editor.
package market

import (
	"context"
	"strings"
	"time"
)

// Status is the current market clock.
type Status struct {
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

// Symbol is a tradable asset.
type Symbol struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Page is one page of a symbol listing.
type Page[T any] struct {
	Symbols []T `json:"symbols"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	Pages   int `json:"pages"`
}

// Provider supplies market data. Assets returns the tradable US equities.
type Provider interface {
	Status(ctx context.Context) (*Status, error)
	Assets(ctx context.Context) ([]Symbol, error)
}

// Search filters assets whose symbol or name contains query, case
// insensitively. An empty query matches everything.
func Search(assets []Symbol, query string) []Symbol {
	q := strings.ToUpper(strings.TrimSpace(query))
	out := make([]Symbol, 0)
	for _, a := range assets {
		if strings.Contains(a.Symbol, q) || (a.Name != "" && strings.Contains(strings.ToUpper(a.Name), q)) {
			out = append(out, a)
		}
	}
	return out
}

// Paginate slices items into 1-based pages. With clamp set a page past the
// end returns the last page instead of an empty one.
func Paginate[T any](items []T, page, perPage int, clamp bool) Page[T] {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	total := len(items)
	pages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if clamp && start >= total && pages > 0 {
		page = pages
		start = (page - 1) * perPage
	}
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return Page[T]{Symbols: items[start:end], Total: total, Page: page, Pages: pages}
}
