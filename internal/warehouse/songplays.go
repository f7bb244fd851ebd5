package warehouse

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"sparkify/internal/records"

	"github.com/zeebo/xxh3"
)

// Songplay is one row of the songplays fact table.
type Songplay struct {
	SongplayID int64
	StartTime  string
	UserID     string
	Level      string
	SongID     *string
	ArtistID   *string
	SessionID  int64
	Location   string
	UserAgent  string
	Year       int64
	Month      int64
}

// JoinStats counts how plays resolved against the catalog.
type JoinStats struct {
	Plays     int // NextSong events considered
	Matched   int // plays with at least one catalog match
	Unmatched int // plays dropped for lack of a match
	Ambiguous int // plays that matched more than one catalog row
	Samples   []AmbiguousMatch
}

// AmbiguousMatch describes one play that matched several catalog rows.
type AmbiguousMatch struct {
	TS      int64    `json:"ts"`
	Artist  string   `json:"artist"`
	Song    string   `json:"song"`
	Length  float64  `json:"length"`
	SongIDs []string `json:"song_ids"`
}

// maxAmbiguousSamples bounds JoinStats.Samples.
const maxAmbiguousSamples = 10

// JoinAmbiguityWarning reports plays that produced several fact rows. It is
// informational; runs never fail on it.
type JoinAmbiguityWarning struct {
	Events  int
	Samples []AmbiguousMatch
}

func (w *JoinAmbiguityWarning) Error() string {
	return fmt.Sprintf("join: %d play(s) matched more than one catalog row", w.Events)
}

// Warning returns the ambiguity warning for s, or nil when every match was
// unique.
func (s JoinStats) Warning() *JoinAmbiguityWarning {
	if s.Ambiguous == 0 {
		return nil
	}
	return &JoinAmbiguityWarning{Events: s.Ambiguous, Samples: s.Samples}
}

// catalogIndex finds catalog rows by (artist_name, title, duration) with
// exact equality. Keys are bucketed by an xxh3 digest and every candidate is
// compared field by field, so hash collisions never produce false matches.
type catalogIndex struct {
	catalog []records.CatalogRecord
	buckets map[uint64][]int
}

func newCatalogIndex(catalog []records.CatalogRecord) *catalogIndex {
	idx := &catalogIndex{catalog: catalog, buckets: make(map[uint64][]int, len(catalog))}
	for i, c := range catalog {
		if c.Duration == nil || math.IsNaN(*c.Duration) {
			continue
		}
		h := joinHash(c.ArtistName, c.Title, *c.Duration)
		idx.buckets[h] = append(idx.buckets[h], i)
	}
	return idx
}

// lookup returns matching catalog positions in catalog order.
func (idx *catalogIndex) lookup(artist, song string, length float64) []int {
	if math.IsNaN(length) {
		return nil
	}
	var out []int
	for _, i := range idx.buckets[joinHash(artist, song, length)] {
		c := idx.catalog[i]
		if c.ArtistName == artist && c.Title == song && *c.Duration == length {
			out = append(out, i)
		}
	}
	return out
}

func joinHash(artist, title string, duration float64) uint64 {
	if duration == 0 {
		duration = 0 // -0 and +0 compare equal
	}
	buf := make([]byte, 0, len(artist)+len(title)+18)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(artist)))
	buf = append(buf, artist...)
	buf = append(buf, title...)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(duration))
	return xxh3.Hash(buf)
}

// BuildSongplays inner-joins plays with the full catalog on
//
//	play.artist == catalog.artist_name &&
//	play.song   == catalog.title &&
//	play.length == catalog.duration
//
// A null on either side never matches. A play with several matches yields
// one row per match, in catalog order. songplay_id starts at 1 and increases
// by one per emitted row, in play order then catalog order.
func BuildSongplays(plays []records.EventRecord, catalog []records.CatalogRecord, loc *time.Location) ([]Songplay, JoinStats) {
	idx := newCatalogIndex(catalog)
	stats := JoinStats{Plays: len(plays)}

	out := make([]Songplay, 0, len(plays))
	var nextID int64 = 1
	for _, e := range plays {
		if e.Artist == nil || e.Song == nil || e.Length == nil {
			stats.Unmatched++
			continue
		}
		matches := idx.lookup(*e.Artist, *e.Song, *e.Length)
		if len(matches) == 0 {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		if len(matches) > 1 {
			stats.Ambiguous++
			if len(stats.Samples) < maxAmbiguousSamples {
				ids := make([]string, 0, len(matches))
				for _, m := range matches {
					ids = append(ids, catalog[m].SongID)
				}
				stats.Samples = append(stats.Samples, AmbiguousMatch{
					TS: e.TS.Int64(), Artist: *e.Artist, Song: *e.Song, Length: *e.Length, SongIDs: ids,
				})
			}
		}

		cal := Decompose(e.TS.Int64(), loc)
		for _, m := range matches {
			c := catalog[m]
			songID, artistID := c.SongID, c.ArtistID
			out = append(out, Songplay{
				SongplayID: nextID,
				StartTime:  cal.StartTime,
				UserID:     e.UserID.String(),
				Level:      e.Level,
				SongID:     &songID,
				ArtistID:   &artistID,
				SessionID:  e.SessionID.Int64(),
				Location:   e.Location,
				UserAgent:  e.UserAgent,
				Year:       cal.Year,
				Month:      cal.Month,
			})
			nextID++
		}
	}
	return out, stats
}
