// Package records defines the raw input shapes read from the catalog (song
// data) and activity-log (log data) feeds.
//
// Field names follow the upstream JSON keys. Nullable numeric fields are
// pointers so that a JSON null or a missing key stays distinguishable from 0.
package records

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// PageNextSong is the page value marking a song-play event.
const PageNextSong = "NextSong"

// CatalogRecord is one song entry of the music catalog feed.
type CatalogRecord struct {
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	ArtistID        string   `json:"artist_id"`
	ArtistName      string   `json:"artist_name"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	Year            int64    `json:"year"`
	Duration        *float64 `json:"duration"`
	NumSongs        int64    `json:"num_songs"`
}

// EventRecord is one entry of the user-activity log feed.
type EventRecord struct {
	TS            FlexInt    `json:"ts"`
	Page          string     `json:"page"`
	UserID        FlexString `json:"userId"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Gender        string     `json:"gender"`
	Level         string     `json:"level"`
	Song          *string    `json:"song"`
	Artist        *string    `json:"artist"`
	Length        *float64   `json:"length"`
	SessionID     FlexInt    `json:"sessionId"`
	Location      string     `json:"location"`
	UserAgent     string     `json:"userAgent"`
	Auth          string     `json:"auth"`
	ItemInSession int64      `json:"itemInSession"`
	Method        string     `json:"method"`
	Status        int64      `json:"status"`
	Registration  *float64   `json:"registration"`
}

// IsSongPlay reports whether the event is a NextSong page view.
func (e *EventRecord) IsSongPlay() bool { return e.Page == PageNextSong }

// FlexString is a string that also accepts JSON numbers and null. The log
// feed emits userId as "10", 10 or "" depending on the producer.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
		return nil
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		// Integral floats such as 10.0 collapse to "10".
		if i, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			*s = FlexString(strconv.FormatInt(i, 10))
			return nil
		}
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("flexstring: parse number %q: %w", b, err)
		}
		if f == float64(int64(f)) {
			*s = FlexString(strconv.FormatInt(int64(f), 10))
			return nil
		}
		*s = FlexString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	default:
		return fmt.Errorf("flexstring: unsupported JSON value %q", b)
	}
}

// String returns the plain string value.
func (s FlexString) String() string { return string(s) }

// FlexInt is an int64 that also accepts JSON floats, numeric strings and
// null. Exporters that round-trip through doubles write ts as
// 1541121934796.0; a fractional part is truncated toward zero.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		b = []byte(v)
	}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if i, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*n = FlexInt(i)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("flexint: parse number %q", b)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("flexint: %q out of range", b)
	}
	*n = FlexInt(math.Trunc(f))
	return nil
}

// Int64 returns the plain integer value.
func (n FlexInt) Int64() int64 { return int64(n) }
