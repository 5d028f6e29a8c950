package lfm

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// All is the "show all" sentinel: a dimension set to All imposes no constraint.
const All = "ALL"

// Predicate reports whether an item passes one filter dimension. A nil
// Predicate imposes no constraint.
type Predicate[T any] func(T) bool

// Filter returns the items satisfying every non-nil predicate, in source order.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
outer:
	for _, item := range items {
		for _, p := range active {
			if !p(item) {
				continue outer
			}
		}
		out = append(out, item)
	}
	return out
}

// StatusIs matches items whose status equals want. Empty or All disables it.
func StatusIs[T any, S ~string](field func(T) S, want string) Predicate[T] {
	if want == "" || want == All {
		return nil
	}
	return func(item T) bool {
		return string(field(item)) == want
	}
}

// FlagIs matches a boolean field against "true" or "false"; anything else
// (including All) disables it.
func FlagIs[T any](field func(T) bool, want string) Predicate[T] {
	var target bool
	switch want {
	case "true":
		target = true
	case "false":
		target = false
	default:
		return nil
	}
	return func(item T) bool {
		return field(item) == target
	}
}

// Equals matches items whose field equals want exactly. Empty or All disables it.
func Equals[T any](field func(T) string, want string) Predicate[T] {
	if want == "" || want == All {
		return nil
	}
	return func(item T) bool {
		return field(item) == want
	}
}

// Contains matches items where any of fields contains query, ignoring case.
// A blank query disables it. The returned predicate must not be shared
// between goroutines.
func Contains[T any](query string, fields ...func(T) string) Predicate[T] {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" || len(fields) == 0 {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields {
			if strings.Contains(fold.String(f(item)), q) {
				return true
			}
		}
		return false
	}
}

// SortBy returns a copy of items stably sorted by key ascending.
func SortBy[T any, K cmp.Ordered](items []T, key func(T) K) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
	return out
}

// Count returns how many items satisfy pred; a nil pred counts everything.
func Count[T any](items []T, pred Predicate[T]) int {
	if pred == nil {
		return len(items)
	}
	n := 0
	for _, item := range items {
		if pred(item) {
			n++
		}
	}
	return n
}

// Criteria is the set of filter dimensions read from a query string.
type Criteria struct {
	Status string
	Flag   string
	Query  string
	Extra  map[string]string
}

// ParseCriteria reads status, flag and q, plus any extra keys, from q.
// Missing status and flag default to All.
func ParseCriteria(values url.Values, extra ...string) Criteria {
	c := Criteria{
		Status: strings.TrimSpace(values.Get("status")),
		Flag:   strings.TrimSpace(values.Get("flag")),
		Query:  strings.TrimSpace(values.Get("q")),
		Extra:  make(map[string]string, len(extra)),
	}
	if c.Status == "" {
		c.Status = All
	}
	if c.Flag == "" {
		c.Flag = All
	}
	for _, key := range extra {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			c.Extra[key] = v
		}
	}
	return c
}

// Values encodes c back into a query string, omitting inactive dimensions.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	if c.Status != "" && c.Status != All {
		v.Set("status", c.Status)
	}
	if c.Flag != "" && c.Flag != All {
		v.Set("flag", c.Flag)
	}
	if c.Query != "" {
		v.Set("q", c.Query)
	}
	for k, val := range c.Extra {
		v.Set(k, val)
	}
	return v
}
