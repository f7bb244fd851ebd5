package sqlite

// Config holds SQLite sink configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:sparkify.db?cache=shared"
	//   "sparkify.db" (interpreted by the driver)
	DSN string
}
