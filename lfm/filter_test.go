package lfm

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
)

type application struct {
	ID     int
	Name   string
	Status string
	Active bool
	Order  int
}

func applications() []application {
	return []application{
		{1, "Ali Hassan", "PENDING", true, 3},
		{2, "سارة محمود", "REJECTED", false, 1},
		{3, "Omar", "REVIEWED", true, 2},
		{4, "ALI Kareem", "REJECTED", true, 1},
		{5, "ليلى", "ACCEPTED", false, 5},
	}
}

func status(a application) string { return a.Status }
func name(a application) string   { return a.Name }
func active(a application) bool   { return a.Active }

func TestFilterRejectedScenario(t *testing.T) {
	items := applications()
	filtered := Filter(items, StatusIs(status, "REJECTED"))
	if len(filtered) != 2 {
		t.Fatalf("filtered len = %d, want 2", len(filtered))
	}
	if got := Count(items, StatusIs(status, "REJECTED")); got != 2 {
		t.Fatalf("rejected badge = %d, want 2", got)
	}
	if filtered[0].ID != 2 || filtered[1].ID != 4 {
		t.Fatalf("source order not kept: %+v", filtered)
	}
}

func TestFilterAllSentinelImposesNothing(t *testing.T) {
	items := applications()
	got := Filter(items, StatusIs(status, All), FlagIs(active, All), Contains("", name))
	if len(got) != len(items) {
		t.Fatalf("len = %d, want %d", len(got), len(items))
	}
	if Count(items, nil) != len(items) {
		t.Fatalf("nil predicate must count everything")
	}
}

func TestContainsIgnoresCase(t *testing.T) {
	got := Filter(applications(), Contains("ali", name))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
	got = Filter(applications(), Contains(" سارة ", name))
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("arabic substring not matched: %+v", got)
	}
}

// Every combination of criteria yields exactly the items satisfying all of
// them, each once, in source order.
func TestFilterSubsetAndCompleteness(t *testing.T) {
	items := applications()
	statuses := []string{All, "PENDING", "REJECTED", "REVIEWED", "ACCEPTED", "UNKNOWN"}
	flags := []string{All, "true", "false"}
	queries := []string{"", "ali", "o", "ل", "zzz"}

	for _, st := range statuses {
		for _, fl := range flags {
			for _, q := range queries {
				t.Run(fmt.Sprintf("%s/%s/%q", st, fl, q), func(t *testing.T) {
					got := Filter(items, StatusIs(status, st), FlagIs(active, fl), Contains(q, name))
					var want []int
					for _, it := range items {
						if matches(it, st, fl, q) {
							want = append(want, it.ID)
						}
					}
					if len(got) != len(want) {
						t.Fatalf("len = %d, want %d", len(got), len(want))
					}
					for i := range got {
						if got[i].ID != want[i] {
							t.Fatalf("got[%d] = %d, want %d", i, got[i].ID, want[i])
						}
					}
				})
			}
		}
	}
}

func matches(a application, st, fl, q string) bool {
	if st != All && a.Status != st {
		return false
	}
	if fl == "true" && !a.Active || fl == "false" && a.Active {
		return false
	}
	return strings.Contains(strings.ToLower(a.Name), strings.ToLower(q))
}

func TestSortByIsStable(t *testing.T) {
	items := applications()
	sorted := SortBy(items, func(a application) int { return a.Order })
	want := []int{2, 4, 3, 1, 5}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("sorted[%d] = %d, want %d", i, sorted[i].ID, id)
		}
	}
	if items[0].ID != 1 {
		t.Fatalf("SortBy must not mutate its input")
	}
}

func TestParseCriteria(t *testing.T) {
	c := ParseCriteria(url.Values{"q": {"  foot "}, "category": {"prosthetics"}}, "category", "tag")
	if c.Status != All || c.Flag != All {
		t.Fatalf("missing dimensions must default to ALL: %+v", c)
	}
	if c.Query != "foot" {
		t.Fatalf("Query = %q", c.Query)
	}
	if c.Extra["category"] != "prosthetics" {
		t.Fatalf("Extra = %v", c.Extra)
	}
	if _, ok := c.Extra["tag"]; ok {
		t.Fatalf("empty extra key must be absent")
	}
	if got := c.Values().Encode(); got != "category=prosthetics&q=foot" {
		t.Fatalf("Values = %q", got)
	}
}
