package models

import "strconv"

// ProgressMarker captures how far into an item playback has gone.
type ProgressMarker struct {
	Watched  float64 `json:"watched"`  // seconds
	Duration float64 `json:"duration"` // seconds
}

// ProgressRecord stores the resume state for a single movie or episode run.
// last_updated is epoch milliseconds and is the ordering field for conflict
// resolution: the record with the greater last_updated wins.
type ProgressRecord struct {
	ID                 int64          `json:"id"`
	MediaType          string         `json:"type"` // movie | tv
	Title              string         `json:"title,omitempty"`
	PosterPath         string         `json:"poster_path,omitempty"`
	LastSeasonWatched  string         `json:"last_season_watched,omitempty"`
	LastEpisodeWatched string         `json:"last_episode_watched,omitempty"`
	Progress           ProgressMarker `json:"progress"`
	LastUpdated        int64          `json:"last_updated"`
}

// Key returns the composite identity for the record.
func (p ProgressRecord) Key() string {
	return p.MediaType + ":" + strconv.FormatInt(p.ID, 10)
}

// Valid reports whether the record is well-formed enough to keep.
func (p ProgressRecord) Valid() bool {
	return p.ID > 0 && ValidMediaType(p.MediaType)
}

// NewerThan reports whether this record supersedes other under the
// greater-last_updated-wins rule. Equal timestamps keep the existing record.
func (p ProgressRecord) NewerThan(other ProgressRecord) bool {
	return p.LastUpdated > other.LastUpdated
}

// PercentWatched returns playback completion in the 0-100 range.
func (p ProgressRecord) PercentWatched() float64 {
	if p.Progress.Duration <= 0 {
		return 0
	}
	pct := p.Progress.Watched / p.Progress.Duration * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// MergeProgress combines two progress maps, keeping the record with the
// greater last_updated per key. Keys present on only one side are kept.
func MergeProgress(local, remote map[string]ProgressRecord) map[string]ProgressRecord {
	merged := make(map[string]ProgressRecord, len(local)+len(remote))
	for key, rec := range remote {
		merged[key] = rec
	}
	for key, rec := range local {
		if existing, ok := merged[key]; !ok || rec.NewerThan(existing) {
			merged[key] = rec
		}
	}
	return merged
}
