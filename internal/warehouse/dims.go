package warehouse

import (
	"fmt"
	"strings"
	"time"

	"sparkify/internal/records"
	"sparkify/internal/transformer/builtin"
)

// SongDim is one row of the songs dimension.
type SongDim struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int64
	Duration *float64
}

// ArtistDim is one row of the artists dimension.
type ArtistDim struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// UserDim is one row of the users dimension.
type UserDim struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// TimeDim is one row of the time dimension.
type TimeDim = Calendar

// UserPolicy selects which NextSong event describes a user.
type UserPolicy string

const (
	// UserFirstSeen keeps the first event in ingestion order.
	UserFirstSeen UserPolicy = "first-seen"
	// UserLatest keeps the event with the greatest ts; ties keep the first seen.
	UserLatest UserPolicy = "latest"
)

// ParseUserPolicy normalizes a policy name; "" means UserFirstSeen.
func ParseUserPolicy(s string) (UserPolicy, error) {
	switch p := UserPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UserFirstSeen, nil
	case UserFirstSeen, UserLatest:
		return p, nil
	default:
		return "", fmt.Errorf("warehouse: unknown user policy %q", s)
	}
}

// BuildSongs keeps the first catalog record per song_id. Records with an
// empty song_id are dropped.
func BuildSongs(catalog []records.CatalogRecord) []SongDim {
	kept := builtin.DeDup[records.CatalogRecord]{
		Key:    func(r records.CatalogRecord) (string, bool) { return r.SongID, r.SongID != "" },
		Policy: builtin.KeepFirst,
	}.Apply(catalog)

	out := make([]SongDim, 0, len(kept))
	for _, r := range kept {
		out = append(out, SongDim{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: r.Duration,
		})
	}
	return out
}

// BuildArtists keeps the first catalog record per artist_id. Records with an
// empty artist_id are dropped.
func BuildArtists(catalog []records.CatalogRecord) []ArtistDim {
	kept := builtin.DeDup[records.CatalogRecord]{
		Key:    func(r records.CatalogRecord) (string, bool) { return r.ArtistID, r.ArtistID != "" },
		Policy: builtin.KeepFirst,
	}.Apply(catalog)

	out := make([]ArtistDim, 0, len(kept))
	for _, r := range kept {
		out = append(out, ArtistDim{
			ArtistID:  r.ArtistID,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		})
	}
	return out
}

// FilterPlays returns the NextSong events in input order.
func FilterPlays(events []records.EventRecord) []records.EventRecord {
	out := make([]records.EventRecord, 0, len(events))
	for _, e := range events {
		if e.IsSongPlay() {
			out = append(out, e)
		}
	}
	return out
}

// BuildUsers keeps one play per userId according to policy. Plays with an
// empty userId are dropped.
func BuildUsers(plays []records.EventRecord, policy UserPolicy) []UserDim {
	d := builtin.DeDup[records.EventRecord]{
		Key: func(e records.EventRecord) (string, bool) {
			id := e.UserID.String()
			return id, id != ""
		},
		Policy: builtin.KeepFirst,
	}
	if policy == UserLatest {
		d.Policy = builtin.Prefer
		d.Better = func(cand, cur records.EventRecord) bool { return cand.TS > cur.TS }
	}

	kept := d.Apply(plays)
	out := make([]UserDim, 0, len(kept))
	for _, e := range kept {
		out = append(out, UserDim{
			UserID:    e.UserID.String(),
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}
	return out
}

// BuildTime decomposes every play's ts in loc and keeps the first row per
// start_time.
func BuildTime(plays []records.EventRecord, loc *time.Location) []TimeDim {
	all := make([]TimeDim, 0, len(plays))
	for _, e := range plays {
		all = append(all, Decompose(e.TS.Int64(), loc))
	}
	return builtin.DeDup[TimeDim]{
		Key:    func(c TimeDim) (string, bool) { return c.StartTime, true },
		Policy: builtin.KeepFirst,
	}.Apply(all)
}
