package models

import "strconv"

// Media type values accepted for favorites and progress records.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// ValidMediaType reports whether the given media type is one we track.
func ValidMediaType(mediaType string) bool {
	return mediaType == MediaTypeMovie || mediaType == MediaTypeTV
}

// FavoriteItem represents a media entry the user has favorited.
// Field names follow the upstream metadata API payloads so the blob can be
// exchanged with the account service unchanged.
type FavoriteItem struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"` // movie | tv
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"` // series use name instead of title
	PosterPath   string  `json:"poster_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	Overview     string  `json:"overview,omitempty"`
}

// Key returns the composite identity for the favorite. Numeric ids collide
// across media types upstream, so identity is always (mediaType, id).
func (f FavoriteItem) Key() string {
	return f.MediaType + ":" + strconv.FormatInt(f.ID, 10)
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (f FavoriteItem) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Name
}

// Valid reports whether the item is well-formed enough to keep. Malformed
// entries read back from disk are dropped rather than trusted.
func (f FavoriteItem) Valid() bool {
	return f.ID > 0 && ValidMediaType(f.MediaType)
}
