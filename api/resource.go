package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Resource is a typed view of one REST collection, e.g. /services.
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds T to the collection at path.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

// Child returns the owned sub-collection name of parent item parentID,
// e.g. /products/7/images.
func Child[C, P any](parent *Resource[P], parentID ID, name string) *Resource[C] {
	return &Resource[C]{c: parent.c, path: parent.itemPath(parentID) + "/" + name}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) itemPath(id ID) string {
	return r.path + "/" + url.PathEscape(string(id))
}

// List issues GET /{resource}. query may be nil.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	path := r.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	items := []T{}
	if err := r.c.doJSON(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get issues GET /{resource}/{id}.
func (r *Resource[T]) Get(ctx context.Context, id ID) (T, error) {
	var item T
	err := r.c.doJSON(ctx, http.MethodGet, r.itemPath(id), nil, &item)
	return item, err
}

// Create issues POST /{resource} with v as JSON.
func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	var created T
	err := r.c.doJSON(ctx, http.MethodPost, r.path, v, &created)
	return created, err
}

// Update issues PATCH /{resource}/{id} carrying only the fields that differ
// between before and after (RFC 7386 merge patch). An empty diff skips the call.
func (r *Resource[T]) Update(ctx context.Context, id ID, before, after T) (T, error) {
	patch, err := MergePatch(before, after)
	if err != nil {
		return after, err
	}
	if len(patch) == 0 {
		return after, nil
	}
	var updated T
	err = r.c.do(ctx, http.MethodPatch, r.itemPath(id), bytes.NewReader(patch), "application/merge-patch+json", &updated)
	return updated, err
}

// Delete issues DELETE /{resource}/{id}.
func (r *Resource[T]) Delete(ctx context.Context, id ID) error {
	return r.c.doJSON(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

// File is one multipart file part.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// CreateMultipart issues POST /{resource} as multipart/form-data.
func (r *Resource[T]) CreateMultipart(ctx context.Context, fields map[string]string, files ...File) (T, error) {
	return r.sendMultipart(ctx, http.MethodPost, r.path, fields, files)
}

func (r *Resource[T]) sendMultipart(ctx context.Context, method, path string, fields map[string]string, files []File) (T, error) {
	var out T
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return out, err
	}
	err = r.c.do(ctx, method, path, body, contentType, &out)
	return out, err
}

func encodeMultipart(fields map[string]string, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// MergePatch returns the RFC 7386 merge patch turning before into after, or
// nil when the two serialize identically.
func MergePatch(before, after any) ([]byte, error) {
	a, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("marshal original: %w", err)
	}
	b, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("marshal modified: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	if string(bytes.TrimSpace(patch)) == "{}" {
		return nil, nil
	}
	return patch, nil
}
