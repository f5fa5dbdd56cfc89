package repositories

import "database/sql"

// Querier is satisfied by both *sql.DB and *sql.Tx so repositories can run inside
// or outside a transaction without duplicated query code.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
