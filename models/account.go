package models

// UserState is the whole-document account blob exchanged with the account
// service. The service only ever reads or replaces it in full; there is no
// field-level API.
type UserState struct {
	ID        string                    `json:"id,omitempty"`
	Favorites []FavoriteItem            `json:"favorites"`
	Progress  map[string]ProgressRecord `json:"vidLinkProgress"`
}

// Snapshot is the local favorites/progress pair captured for a push or for
// seeding a new account at registration.
type Snapshot struct {
	Favorites []FavoriteItem            `json:"favorites"`
	Progress  map[string]ProgressRecord `json:"vidLinkProgress"`
}

// Sanitize drops malformed entries and re-keys progress records by their
// composite key. Stored blobs are never trusted as-is.
func (s Snapshot) Sanitize() Snapshot {
	clean := Snapshot{
		Favorites: make([]FavoriteItem, 0, len(s.Favorites)),
		Progress:  make(map[string]ProgressRecord, len(s.Progress)),
	}
	seen := make(map[string]struct{}, len(s.Favorites))
	for _, item := range s.Favorites {
		if !item.Valid() {
			continue
		}
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		clean.Favorites = append(clean.Favorites, item)
	}
	for _, rec := range s.Progress {
		if !rec.Valid() {
			continue
		}
		if existing, ok := clean.Progress[rec.Key()]; ok && !rec.NewerThan(existing) {
			continue
		}
		clean.Progress[rec.Key()] = rec
	}
	return clean
}
