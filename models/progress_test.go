package models

import "testing"

func TestMergeProgressGreaterLastUpdatedWins(t *testing.T) {
	local := map[string]ProgressRecord{
		"movie:1": {ID: 1, MediaType: MediaTypeMovie, LastUpdated: 300},
		"tv:2":    {ID: 2, MediaType: MediaTypeTV, LastUpdated: 100},
		"movie:3": {ID: 3, MediaType: MediaTypeMovie, LastUpdated: 50},
	}
	remote := map[string]ProgressRecord{
		"movie:1": {ID: 1, MediaType: MediaTypeMovie, LastUpdated: 200},
		"tv:2":    {ID: 2, MediaType: MediaTypeTV, LastUpdated: 400},
		"tv:9":    {ID: 9, MediaType: MediaTypeTV, LastUpdated: 10},
	}

	merged := MergeProgress(local, remote)

	if len(merged) != 4 {
		t.Fatalf("expected union of keys, got %d entries", len(merged))
	}
	if merged["movie:1"].LastUpdated != 300 {
		t.Fatalf("expected local movie:1 to win, got %d", merged["movie:1"].LastUpdated)
	}
	if merged["tv:2"].LastUpdated != 400 {
		t.Fatalf("expected remote tv:2 to win, got %d", merged["tv:2"].LastUpdated)
	}
	if _, ok := merged["movie:3"]; !ok {
		t.Fatal("local-only key dropped")
	}
	if _, ok := merged["tv:9"]; !ok {
		t.Fatal("remote-only key dropped")
	}
}

func TestMergeProgressEqualTimestampKeepsRemote(t *testing.T) {
	local := map[string]ProgressRecord{
		"movie:1": {ID: 1, MediaType: MediaTypeMovie, LastUpdated: 100, Title: "local"},
	}
	remote := map[string]ProgressRecord{
		"movie:1": {ID: 1, MediaType: MediaTypeMovie, LastUpdated: 100, Title: "remote"},
	}

	if got := MergeProgress(local, remote)["movie:1"].Title; got != "remote" {
		t.Fatalf("expected ties to keep the remote record, got %q", got)
	}
}

func TestPercentWatched(t *testing.T) {
	tests := []struct {
		name string
		rec  ProgressRecord
		want float64
	}{
		{"halfway", ProgressRecord{Progress: ProgressMarker{Watched: 50, Duration: 100}}, 50},
		{"zero duration", ProgressRecord{Progress: ProgressMarker{Watched: 50}}, 0},
		{"overshoot clamped", ProgressRecord{Progress: ProgressMarker{Watched: 150, Duration: 100}}, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.PercentWatched(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCompositeKeys(t *testing.T) {
	movie := FavoriteItem{ID: 7, MediaType: MediaTypeMovie}
	show := FavoriteItem{ID: 7, MediaType: MediaTypeTV}
	if movie.Key() == show.Key() {
		t.Fatal("keys must differ across media types for the same id")
	}
	if movie.Key() != "movie:7" {
		t.Fatalf("unexpected key %q", movie.Key())
	}

	rec := ProgressRecord{ID: 7, MediaType: MediaTypeTV}
	if rec.Key() != "tv:7" {
		t.Fatalf("unexpected key %q", rec.Key())
	}
}

func TestSnapshotSanitize(t *testing.T) {
	snap := Snapshot{
		Favorites: []FavoriteItem{
			{ID: 1, MediaType: MediaTypeMovie},
			{ID: 1, MediaType: MediaTypeMovie}, // duplicate
			{ID: 0, MediaType: MediaTypeMovie}, // no id
			{ID: 2, MediaType: "book"},         // bad type
		},
		Progress: map[string]ProgressRecord{
			"whatever": {ID: 5, MediaType: MediaTypeTV, LastUpdated: 10},
			"older":    {ID: 5, MediaType: MediaTypeTV, LastUpdated: 5},
			"invalid":  {ID: 0, MediaType: MediaTypeTV},
		},
	}

	clean := snap.Sanitize()

	if len(clean.Favorites) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(clean.Favorites))
	}
	if len(clean.Progress) != 1 {
		t.Fatalf("expected 1 progress record, got %d", len(clean.Progress))
	}
	if clean.Progress["tv:5"].LastUpdated != 10 {
		t.Fatalf("expected newest record re-keyed under tv:5, got %+v", clean.Progress)
	}
}
