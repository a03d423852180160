package repository

// scanner abstracts *sql.Row and *sql.Rows so each repository can share one
// scan function between single-row and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}
