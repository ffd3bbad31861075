package directus

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Permission struct {
	ID         flexID `json:"id"`
	Collection string `json:"collection"`
	Action     string `json:"action"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Meta  *struct {
		Special []string `json:"special"`
	} `json:"meta"`
}

// FieldSpec is the body of POST /fields/{collection}.
type FieldSpec struct {
	Field  string         `json:"field"`
	Type   string         `json:"type"`
	Meta   map[string]any `json:"meta"`
	Schema map[string]any `json:"schema"`
}

// ErrFieldExists is returned by CreateField when Directus reports a duplicate.
var ErrFieldExists = errors.New("field already exists")

// AdminRepo holds the schema and access-control calls used by directusctl.
// It expects a client configured with an admin token.
type AdminRepo struct {
	client *Client
}

func NewAdminRepo(c *Client) *AdminRepo {
	return &AdminRepo{client: c}
}

func (r *AdminRepo) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := r.client.Do(ctx, Request{Path: "/roles", Query: NewQuery().Fields("id", "name").Values()}, &roles)
	return roles, err
}

// RoleByName returns nil when no role has that exact name.
func (r *AdminRepo) RoleByName(ctx context.Context, name string) (*Role, error) {
	var roles []Role
	q := NewQuery().Fields("id", "name").Filter("name", "_eq", name).Limit(1)
	if err := r.client.Do(ctx, Request{Path: "/roles", Query: q.Values()}, &roles); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}
	return &roles[0], nil
}

// Permissions lists a role's permissions, optionally for one collection.
func (r *AdminRepo) Permissions(ctx context.Context, roleID, collection string) ([]Permission, error) {
	q := NewQuery().Fields("id", "collection", "action").Filter("role", "_eq", roleID).Limit(-1)
	if collection != "" {
		q.Filter("collection", "_eq", collection)
	}
	var perms []Permission
	err := r.client.Do(ctx, Request{Path: "/permissions", Query: q.Values()}, &perms)
	return perms, err
}

func (r *AdminRepo) CreatePermission(ctx context.Context, payload map[string]any) error {
	return r.client.Do(ctx, Request{Method: http.MethodPost, Path: "/permissions", Body: payload}, nil)
}

func (r *AdminRepo) Fields(ctx context.Context, collection string) ([]Field, error) {
	var fields []Field
	err := r.client.Do(ctx, Request{Path: "/fields/" + url.PathEscape(collection)}, &fields)
	return fields, err
}

func (r *AdminRepo) CreateField(ctx context.Context, collection string, spec FieldSpec) error {
	err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: "/fields/" + url.PathEscape(collection), Body: spec}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Body), "already exists") {
		return ErrFieldExists
	}
	return err
}

// Sample reads up to limit items of a collection with the given token, or
// the client's token when token is empty.
func (r *AdminRepo) Sample(ctx context.Context, collection, token string, limit int, fields ...string) ([]map[string]any, error) {
	q := NewQuery().Limit(limit)
	if len(fields) > 0 {
		q.Fields(fields...)
	}
	var items []map[string]any
	err := r.client.Do(ctx, Request{Path: "/items/" + url.PathEscape(collection), Query: q.Values(), Token: token}, &items)
	return items, err
}

func (r *AdminRepo) ServerHealth(ctx context.Context) error {
	_, err := r.client.DoRaw(ctx, Request{Path: "/server/health", Auth: Anonymous})
	return err
}
