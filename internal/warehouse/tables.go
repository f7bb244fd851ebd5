package warehouse

// Row conversion in schema column order. Nullable values become nil.

func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// SongRows renders songs in schema.Songs column order.
func SongRows(in []SongDim) [][]any {
	out := make([][]any, 0, len(in))
	for _, s := range in {
		out = append(out, []any{s.SongID, s.Title, s.ArtistID, s.Year, optFloat(s.Duration)})
	}
	return out
}

// ArtistRows renders artists in schema.Artists column order.
func ArtistRows(in []ArtistDim) [][]any {
	out := make([][]any, 0, len(in))
	for _, a := range in {
		out = append(out, []any{a.ArtistID, a.Name, a.Location, optFloat(a.Latitude), optFloat(a.Longitude)})
	}
	return out
}

// UserRows renders users in schema.Users column order.
func UserRows(in []UserDim) [][]any {
	out := make([][]any, 0, len(in))
	for _, u := range in {
		out = append(out, []any{u.UserID, u.FirstName, u.LastName, u.Gender, u.Level})
	}
	return out
}

// TimeRows renders the time dimension in schema.Time column order.
func TimeRows(in []TimeDim) [][]any {
	out := make([][]any, 0, len(in))
	for _, c := range in {
		out = append(out, []any{c.StartTime, c.Hour, c.Day, c.Week, c.Month, c.Year, c.Weekday})
	}
	return out
}

// SongplayRows renders facts in schema.Songplays column order.
func SongplayRows(in []Songplay) [][]any {
	out := make([][]any, 0, len(in))
	for _, p := range in {
		out = append(out, []any{
			p.SongplayID, p.StartTime, p.UserID, p.Level,
			optString(p.SongID), optString(p.ArtistID),
			p.SessionID, p.Location, p.UserAgent, p.Year, p.Month,
		})
	}
	return out
}
