package views

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/markdown"
)

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

const pillBase = "inline-flex items-center rounded-full border px-3 py-1 text-xs font-semibold transition"

// TagClass returns CSS classes for a filter pill, with active variant.
func TagClass(active bool) string {
	if active {
		return twmerge.Merge(pillBase, "border-teal-700 bg-teal-700 text-white")
	}
	return twmerge.Merge(pillBase, "border-stone-300 bg-white text-stone-700 hover:bg-stone-100")
}

var statusColors = map[string]string{
	string(api.StatusNew):       "bg-sky-100 text-sky-800 border-sky-200",
	string(api.StatusPending):   "bg-amber-100 text-amber-800 border-amber-200",
	string(api.StatusReviewed):  "bg-indigo-100 text-indigo-800 border-indigo-200",
	string(api.StatusReplied):   "bg-indigo-100 text-indigo-800 border-indigo-200",
	string(api.StatusConfirmed): "bg-indigo-100 text-indigo-800 border-indigo-200",
	string(api.StatusAccepted):  "bg-emerald-100 text-emerald-800 border-emerald-200",
	string(api.StatusApproved):  "bg-emerald-100 text-emerald-800 border-emerald-200",
	string(api.StatusCompleted): "bg-emerald-100 text-emerald-800 border-emerald-200",
	string(api.StatusPublished): "bg-emerald-100 text-emerald-800 border-emerald-200",
	string(api.StatusActive):    "bg-emerald-100 text-emerald-800 border-emerald-200",
	string(api.StatusRejected):  "bg-rose-100 text-rose-800 border-rose-200",
	string(api.StatusCancelled): "bg-rose-100 text-rose-800 border-rose-200",
	string(api.StatusClosed):    "bg-stone-200 text-stone-700 border-stone-300",
	string(api.StatusDraft):     "bg-stone-200 text-stone-700 border-stone-300",
}

// BadgeClass returns CSS classes for a status badge.
func BadgeClass(status string) string {
	color, ok := statusColors[status]
	if !ok {
		color = "bg-stone-100 text-stone-700 border-stone-200"
	}
	return twmerge.Merge(pillBase, "px-2 py-0.5", color)
}

// Money formats amount in the given ISO currency.
func Money(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "…"
}

func timeOf(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	}
	return time.Time{}
}

func safeURL(raw string) template.URL {
	if markdown.SafeURL(raw) == "" {
		return "#"
	}
	return template.URL(strings.TrimSpace(raw))
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd argument count")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

func decimalOf(v any) decimal.Decimal {
	switch d := v.(type) {
	case decimal.Decimal:
		return d
	case *decimal.Decimal:
		if d != nil {
			return *d
		}
	case int:
		return decimal.NewFromInt(int64(d))
	case float64:
		return decimal.NewFromFloat(d)
	}
	return decimal.Zero
}
