package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ohler55/ojg/jp"

	"github.com/HerbHall/marketdesk/internal/resource"
)

// Report fetches one JSON document, such as a dashboard summary, and
// decodes the value at an item path.
type Report[T any] struct {
	client   *Client
	name     string
	path     string
	itemPath string
	item     jp.Expr
}

// Compile-time interface check.
var _ resource.Fetcher[struct{}] = (*Report[struct{}])(nil)

// NewReport binds a report endpoint to a client. An empty item path means
// the whole body.
func NewReport[T any](c *Client, name, path, item string) (*Report[T], error) {
	if item == "" {
		item = "$"
	}
	expr, err := jp.ParseString(item)
	if err != nil {
		return nil, fmt.Errorf("report %s: parse item path %q: %w", name, item, err)
	}
	return &Report[T]{client: c, name: name, path: path, itemPath: item, item: expr}, nil
}

// Fetch requests the report. Empty parameters are not sent.
func (r *Report[T]) Fetch(ctx context.Context, params resource.Filters) (T, error) {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	body, err := r.client.Do(ctx, http.MethodGet, r.path, values, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAt[T](body, r.item, r.itemPath, r.name)
}
