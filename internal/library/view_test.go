package library

import (
	"errors"
	"slices"
	"testing"
)

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func samplePlaylist() Playlist {
	return Playlist{
		ID:      "pl_1",
		OwnerID: "alice",
		Name:    "Sample",
		Items: []Item{
			{Kind: RemoteReference, ID: "1", Title: "beta", Rating: 3},
			{Kind: UploadedMedia, ID: "2", Title: "Alpha", Locator: "/uploads/a.mp3", Rating: 5},
			{Kind: RemoteReference, ID: "3", Title: "gamma", Rating: 3},
			{Kind: RemoteReference, ID: "4", Title: "beta", Rating: 0},
			{Kind: UploadedMedia, ID: "5", Title: "Delta Blues", Locator: "/uploads/d.mp3", Rating: 5},
		},
	}
}

func TestFilterAndSortAscending(t *testing.T) {
	got := FilterAndSort(samplePlaylist(), "", SortAlphabeticalAsc)
	// Case-sensitive ordering puts upper-case titles first; equal titles keep stored order.
	want := []string{"2", "5", "1", "4", "3"}
	if !slices.Equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestFilterAndSortDescendingIsReverseOfAscending(t *testing.T) {
	p := samplePlaylist()
	asc := FilterAndSort(p, "", SortAlphabeticalAsc)
	desc := FilterAndSort(p, "", SortAlphabeticalDesc)

	reversed := slices.Clone(asc)
	slices.Reverse(reversed)
	if !slices.Equal(ids(desc), ids(reversed)) {
		t.Fatalf("expected %v, got %v", ids(reversed), ids(desc))
	}
}

func TestFilterAndSortRatingIsStable(t *testing.T) {
	got := FilterAndSort(samplePlaylist(), "", SortRatingDesc)
	want := []string{"2", "5", "1", "3", "4"}
	if !slices.Equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestFilterAndSortQuery(t *testing.T) {
	p := samplePlaylist()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "blank matches all", query: "   ", want: []string{"Alpha", "Delta Blues", "beta", "beta", "gamma"}},
		{name: "case insensitive", query: "BETA", want: []string{"beta", "beta"}},
		{name: "substring", query: "lu", want: []string{"Delta Blues"}},
		{name: "trimmed", query: "  alp ", want: []string{"Alpha"}},
		{name: "no match", query: "zzz", want: []string{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := titles(FilterAndSort(p, tc.query, SortAlphabeticalAsc))
			if !slices.Equal(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFilterRoundTrip(t *testing.T) {
	p := samplePlaylist()
	for _, item := range p.Items {
		got := FilterAndSort(p, item.Title, SortRatingDesc)
		if !slices.ContainsFunc(got, func(i Item) bool { return i.ID == item.ID }) {
			t.Fatalf("filtering by %q dropped item %s", item.Title, item.ID)
		}
	}
}

func TestFilterAndSortDoesNotModifyPlaylist(t *testing.T) {
	p := samplePlaylist()
	before := ids(p.Items)
	FilterAndSort(p, "", SortRatingDesc)
	FilterAndSort(p, "", SortAlphabeticalDesc)
	if !slices.Equal(before, ids(p.Items)) {
		t.Fatalf("playlist order changed: %v", ids(p.Items))
	}
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    SortMode
		wantErr bool
	}{
		{raw: "", want: SortAlphabeticalAsc},
		{raw: "az", want: SortAlphabeticalAsc},
		{raw: "za", want: SortAlphabeticalDesc},
		{raw: "rate", want: SortRatingDesc},
		{raw: "alphabetical-descending", want: SortAlphabeticalDesc},
		{raw: " Rating-Descending ", want: SortRatingDesc},
		{raw: "newest", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseSortMode(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
