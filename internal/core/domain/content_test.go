package domain

import (
	"math"
	"testing"
	"time"
)

func TestSortByOrder_TieBreaks(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*Record{
		{ID: "d", Order: 2, CreatedAt: at},
		{ID: "c", Order: 1, CreatedAt: at.Add(time.Minute)},
		{ID: "b", Order: 1, CreatedAt: at},
		{ID: "a", Order: 1, CreatedAt: at},
		{ID: "e", Order: 0, CreatedAt: at.Add(time.Hour)},
	}
	SortByOrder(records)

	want := []string{"e", "a", "b", "c", "d"}
	for i, r := range records {
		if r.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], r.ID)
		}
	}
}

func TestPage_Offset(t *testing.T) {
	cases := []struct {
		page Page
		want int
	}{
		{Page{Page: 0, Limit: 20}, 0},
		{Page{Page: 1, Limit: 20}, 0},
		{Page{Page: 3, Limit: 20}, 40},
		{Page{Page: 5, Limit: 0}, 0},
		{Page{Page: math.MaxInt, Limit: 100}, math.MaxInt},
	}
	for _, tc := range cases {
		if got := tc.page.Offset(); got != tc.want {
			t.Errorf("%+v: expected offset %d, got %d", tc.page, tc.want, got)
		}
	}
}
