package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/campusweb/sitedata/internal/output"
)

// ResourceOption configures a Resource.
type ResourceOption func(*resourceConfig)

type resourceConfig struct {
	selectExpr string
	results    bool
	defaults   Filters
}

// WithSelect projects the payload through a jq expression before decoding.
// Multiple outputs are collected into an array.
func WithSelect(expr string) ResourceOption {
	return func(c *resourceConfig) { c.selectExpr = expr }
}

// WithResults takes the top-level "results" field of paginated list
// payloads, and the whole document when the field is absent.
func WithResults() ResourceOption {
	return func(c *resourceConfig) { c.results = true }
}

// WithDefaultFilters sets filters merged beneath every call's filters.
func WithDefaultFilters(f Filters) ResourceOption {
	return func(c *resourceConfig) { c.defaults = f.Clone() }
}

// Resource fetches one logical resource and decodes it into T.
type Resource[T any] struct {
	client   *Client
	name     string
	path     string
	code     *gojq.Code
	results  bool
	defaults Filters
}

// NewResource creates a typed fetcher for path. The name identifies the
// resource in logs and query keys.
func NewResource[T any](client *Client, name, path string, opts ...ResourceOption) (*Resource[T], error) {
	var cfg resourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Resource[T]{
		client:   client,
		name:     name,
		path:     path,
		results:  cfg.results,
		defaults: cfg.defaults,
	}
	if r.name == "" {
		r.name = path
	}

	if cfg.selectExpr != "" {
		code, err := CompileSelect(cfg.selectExpr)
		if err != nil {
			return nil, err
		}
		r.code = code
	}
	return r, nil
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.name }

// Path returns the request path.
func (r *Resource[T]) Path() string { return r.path }

// Client returns the underlying client.
func (r *Resource[T]) Client() *Client { return r.client }

// Fetch performs one request in the given locale and decodes the payload.
// An empty result decodes to the zero value of T.
func (r *Resource[T]) Fetch(ctx context.Context, lang string, filters Filters) (T, error) {
	var zero T

	merged := r.defaults.Clone()
	if merged == nil {
		merged = filters
	} else {
		for k, v := range filters {
			merged[k] = v
		}
	}

	resp, err := r.client.Get(ctx, r.path, lang, merged)
	if err != nil {
		return zero, err
	}
	if resp.Empty {
		return zero, nil
	}

	if !r.results && r.code == nil {
		var out T
		if err := resp.UnmarshalData(&out); err != nil {
			return zero, output.ErrFormat(resp.ContentType, fmt.Errorf("decode %s: %w", r.name, err))
		}
		return out, nil
	}

	var doc any
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return zero, output.ErrFormat(resp.ContentType, err)
	}
	if r.results {
		doc = Results(doc)
	}
	if r.code != nil {
		doc, err = Project(ctx, r.code, doc)
		if err != nil {
			return zero, err
		}
	}
	return Decode[T](doc, r.name, resp.ContentType)
}

// Results returns doc["results"] when doc is an object carrying that field.
func Results(doc any) any {
	if obj, ok := doc.(map[string]any); ok {
		if results, ok := obj["results"]; ok {
			return results
		}
	}
	return doc
}

// CompileSelect parses and compiles a jq expression.
func CompileSelect(expr string) (*gojq.Code, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, output.ErrUsageHint(fmt.Sprintf("Invalid jq expression: %s", expr), err.Error())
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, output.ErrUsageHint(fmt.Sprintf("Invalid jq expression: %s", expr), err.Error())
	}
	return code, nil
}

// Project runs code against doc. A single output is returned as is;
// several are collected into an array; none yields nil.
func Project(ctx context.Context, code *gojq.Code, doc any) (any, error) {
	var outputs []any
	iter := code.RunWithContext(ctx, doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, output.ErrFormat("", fmt.Errorf("jq: %w", err))
		}
		outputs = append(outputs, v)
	}

	switch len(outputs) {
	case 0:
		return nil, nil
	case 1:
		return outputs[0], nil
	default:
		return outputs, nil
	}
}

// Decode converts a generic JSON value into T.
func Decode[T any](doc any, name, contentType string) (T, error) {
	var out T
	data, err := json.Marshal(doc)
	if err != nil {
		return out, output.ErrFormat(contentType, fmt.Errorf("encode %s: %w", name, err))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, output.ErrFormat(contentType, fmt.Errorf("decode %s: %w", name, err))
	}
	return out, nil
}
