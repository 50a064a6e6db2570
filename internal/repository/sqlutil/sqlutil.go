// Package sqlutil holds small helpers shared by the Postgres repositories.
package sqlutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Where accumulates AND-ed predicates and their positional arguments.
type Where struct {
	clauses []string
	args    []any
}

// Arg registers v and returns its placeholder ($n).
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// Add appends a predicate built with placeholders from Arg.
func (w *Where) Add(clause string) {
	w.clauses = append(w.clauses, clause)
}

// SQL renders the WHERE clause, or an empty string when no predicate was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *Where) Args() []any {
	return w.args
}

// EscapeLike makes s safe to embed in an ILIKE pattern.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Contains wraps s as a case-insensitive substring pattern.
func Contains(s string) string {
	return "%" + EscapeLike(s) + "%"
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
