package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/ohler55/ojg/jp"

	"github.com/HerbHall/marketdesk/internal/resource"
)

// Resource serves one resource type to a store over a Client.
type Resource[T any] struct {
	client   *Client
	name     string
	ep       Endpoints
	envelope compiledEnvelope
	opItems  map[string]jp.Expr
}

// Compile-time interface checks.
var (
	_ resource.Transport[struct{}] = (*Resource[struct{}])(nil)
	_ resource.Creator[struct{}]   = (*Resource[struct{}])(nil)
)

// NewResource binds endpoints to a client. It fails if an envelope path does
// not parse.
func NewResource[T any](c *Client, name string, ep Endpoints) (*Resource[T], error) {
	ep = ep.WithDefaults()
	env, err := ep.Envelope.compile()
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", name, err)
	}
	r := &Resource[T]{client: c, name: name, ep: ep, envelope: env, opItems: map[string]jp.Expr{}}
	for opName, op := range ep.Operations {
		if op.Item == "" {
			continue
		}
		expr, err := jp.ParseString(op.Item)
		if err != nil {
			return nil, fmt.Errorf("resource %s: parse %s item path %q: %w", name, opName, op.Item, err)
		}
		r.opItems[opName] = expr
	}
	if ep.Create.Item != "" {
		expr, err := jp.ParseString(ep.Create.Item)
		if err != nil {
			return nil, fmt.Errorf("resource %s: parse create item path %q: %w", name, ep.Create.Item, err)
		}
		r.opItems[resource.OperationCreate] = expr
	}
	return r, nil
}

// Endpoints returns the endpoint table with defaults applied.
func (r *Resource[T]) Endpoints() Endpoints { return r.ep }

// List fetches one page. Empty filter values are not sent.
func (r *Resource[T]) List(ctx context.Context, q resource.Query) (resource.Page[T], error) {
	values := url.Values{}
	for k, v := range q.Filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	values.Set(r.ep.PageParam, strconv.Itoa(q.Page))
	values.Set(r.ep.LimitParam, strconv.Itoa(q.PageSize))

	body, err := r.client.Do(ctx, http.MethodGet, r.ep.List, values, nil)
	if err != nil {
		return resource.Page[T]{}, err
	}
	return r.decodePage(body)
}

// Get fetches one item.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if r.ep.Detail == "" {
		return zero, fmt.Errorf("%s: no detail endpoint", r.name)
	}
	body, err := r.client.Do(ctx, http.MethodGet, r.ep.DetailPath(id), nil, nil)
	if err != nil {
		return zero, err
	}
	return r.decodeItem(body)
}

// Mutate sends the named operation. payload is sent as the JSON body.
func (r *Resource[T]) Mutate(ctx context.Context, id, operation string, payload any) (T, error) {
	var zero T
	op, ok := r.ep.Operation(operation)
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", r.name, operation, ErrUnknownOperation)
	}
	if payload == nil {
		payload = struct{}{}
	}
	body, err := r.client.Do(ctx, op.Method, op.PathFor(id), nil, payload)
	if err != nil {
		return zero, err
	}
	if expr, ok := r.opItems[operation]; ok {
		return r.decodeItemAt(body, expr, op.Item)
	}
	return r.decodeItem(body)
}

// Create posts payload to the create endpoint and decodes the new item.
func (r *Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	var zero T
	op := r.ep.Create
	if op.Path == "" {
		return zero, fmt.Errorf("%s: %w", r.name, resource.ErrNotCreatable)
	}
	if payload == nil {
		payload = struct{}{}
	}
	body, err := r.client.Do(ctx, op.Method, op.Path, nil, payload)
	if err != nil {
		return zero, err
	}
	if expr, ok := r.opItems[resource.OperationCreate]; ok {
		return r.decodeItemAt(body, expr, op.Item)
	}
	return r.decodeItem(body)
}

func (r *Resource[T]) decodePage(body []byte) (resource.Page[T], error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return resource.Page[T]{}, fmt.Errorf("decode %s list: %w", r.name, err)
	}

	raw := first(r.envelope.items, data)
	if raw == nil {
		return resource.Page[T]{}, fmt.Errorf("decode %s list: no items at %s", r.name, r.ep.Envelope.Items)
	}
	var items []T
	if err := remarshal(raw, &items); err != nil {
		return resource.Page[T]{}, fmt.Errorf("decode %s items: %w", r.name, err)
	}

	page := resource.Page[T]{Items: items, Total: len(items)}
	if n, ok := intValue(first(r.envelope.total, data)); ok {
		page.Total = n
	}
	if n, ok := intValue(first(r.envelope.page, data)); ok {
		page.Page = n
	}
	if n, ok := intValue(first(r.envelope.limit, data)); ok {
		page.PageSize = n
	}
	return page, nil
}

func (r *Resource[T]) decodeItem(body []byte) (T, error) {
	return r.decodeItemAt(body, r.envelope.item, r.ep.Envelope.Item)
}

func (r *Resource[T]) decodeItemAt(body []byte, expr jp.Expr, path string) (T, error) {
	return decodeAt[T](body, expr, path, r.name)
}

// decodeAt decodes the first value expr selects from body into a T.
func decodeAt[T any](body []byte, expr jp.Expr, path, name string) (T, error) {
	var zero T
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return zero, fmt.Errorf("decode %s item: %w", name, err)
	}
	raw := first(expr, data)
	if raw == nil {
		return zero, fmt.Errorf("decode %s item: nothing at %s", name, path)
	}
	var item T
	if err := remarshal(raw, &item); err != nil {
		return zero, fmt.Errorf("decode %s item: %w", name, err)
	}
	return item, nil
}

// remarshal converts a generic decoded value into dst.
func remarshal(v, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
