package apiclient

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Operation is one mutating endpoint. Path may contain an {id} placeholder.
// Item overrides the envelope's item path for this operation's response.
type Operation struct {
	Method string
	Path   string
	Item   string
}

// PathFor substitutes the escaped id into the operation path, so an id can
// never add or climb path segments.
func (o Operation) PathFor(id string) string {
	return strings.ReplaceAll(o.Path, "{id}", url.PathEscape(id))
}

// Envelope locates list and item fields in a response body. Each field is a
// JSONPath expression; "$" means the whole body.
type Envelope struct {
	Items string
	Total string
	Page  string
	Limit string
	Item  string
}

// DefaultEnvelope is the uniform list shape {items, total, page, limit} with
// bare items on detail and mutation responses.
var DefaultEnvelope = Envelope{
	Items: "$.items",
	Total: "$.total",
	Page:  "$.page",
	Limit: "$.limit",
	Item:  "$",
}

// Endpoints describes where one resource lives on the API.
type Endpoints struct {
	List       string
	Detail     string // contains {id}
	Create     Operation
	Operations map[string]Operation
	Envelope   Envelope
	PageParam  string
	LimitParam string
}

// WithDefaults fills unset envelope paths, query parameter names and the
// create method.
func (e Endpoints) WithDefaults() Endpoints {
	if e.Envelope.Items == "" {
		e.Envelope.Items = DefaultEnvelope.Items
	}
	if e.Envelope.Total == "" {
		e.Envelope.Total = DefaultEnvelope.Total
	}
	if e.Envelope.Page == "" {
		e.Envelope.Page = DefaultEnvelope.Page
	}
	if e.Envelope.Limit == "" {
		e.Envelope.Limit = DefaultEnvelope.Limit
	}
	if e.Envelope.Item == "" {
		e.Envelope.Item = DefaultEnvelope.Item
	}
	if e.PageParam == "" {
		e.PageParam = "page"
	}
	if e.LimitParam == "" {
		e.LimitParam = "limit"
	}
	if e.Create.Path != "" && e.Create.Method == "" {
		e.Create.Method = http.MethodPost
	}
	return e
}

// DetailPath substitutes the escaped id into the detail path.
func (e Endpoints) DetailPath(id string) string {
	return strings.ReplaceAll(e.Detail, "{id}", url.PathEscape(id))
}

// Operation looks up a named operation.
func (e Endpoints) Operation(name string) (Operation, bool) {
	op, ok := e.Operations[name]
	if ok && op.Method == "" {
		op.Method = http.MethodPatch
	}
	return op, ok
}

// OperationNames returns the defined operation names in no particular order.
func (e Endpoints) OperationNames() []string {
	names := make([]string, 0, len(e.Operations))
	for name := range e.Operations {
		names = append(names, name)
	}
	return names
}

// compiledEnvelope holds parsed JSONPath expressions.
type compiledEnvelope struct {
	items, total, page, limit, item jp.Expr
}

func (e Envelope) compile() (compiledEnvelope, error) {
	var (
		out compiledEnvelope
		err error
	)
	fields := []struct {
		name string
		path string
		dst  *jp.Expr
	}{
		{"items", e.Items, &out.items},
		{"total", e.Total, &out.total},
		{"page", e.Page, &out.page},
		{"limit", e.Limit, &out.limit},
		{"item", e.Item, &out.item},
	}
	for _, f := range fields {
		if *f.dst, err = jp.ParseString(f.path); err != nil {
			return compiledEnvelope{}, fmt.Errorf("parse %s path %q: %w", f.name, f.path, err)
		}
	}
	return out, nil
}

// Wrap builds a list response body in this envelope's shape. Only plain
// dotted paths ($.a.b) are supported.
func (e Envelope) Wrap(items any, total, page, limit int) (any, error) {
	e = Endpoints{Envelope: e}.WithDefaults().Envelope
	var body any = map[string]any{}
	var err error
	for _, f := range []struct {
		path  string
		value any
	}{
		{e.Items, items},
		{e.Total, total},
		{e.Page, page},
		{e.Limit, limit},
	} {
		if body, err = place(body, f.path, f.value); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// WrapItem builds a detail or mutation response body.
func (e Envelope) WrapItem(item any) (any, error) {
	path := e.Item
	if path == "" {
		path = DefaultEnvelope.Item
	}
	return place(map[string]any{}, path, item)
}

// place sets value at path inside body, creating intermediate objects.
// A root path replaces body.
func place(body any, path string, value any) (any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	var keys []string
	for _, frag := range expr {
		switch f := frag.(type) {
		case jp.Root:
		case jp.Child:
			keys = append(keys, string(f))
		default:
			return nil, fmt.Errorf("path %q: only dotted child paths can be written", path)
		}
	}
	if len(keys) == 0 {
		return value, nil
	}
	root, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("path %q: body is not an object", path)
	}
	node := root
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value
	return root, nil
}

// first returns the first value matched by expr, or nil.
func first(expr jp.Expr, data any) any {
	res := expr.Get(data)
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

// intValue converts a decoded JSON number or numeric string.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
