package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/vidstream/internal/repository"
)

// Postgres SQLSTATE codes we translate.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps constraint violations to repository sentinels so
// handlers can turn them into 409/404 without knowing about Postgres.
// Anything else is returned unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return errors.Join(repository.ErrConflict, err)
	case foreignKeyViolation:
		return errors.Join(repository.ErrNotFound, err)
	}
	return err
}

// scanner is satisfied by both pgx.Row and pgx.Rows, so one scan function
// serves QueryRow and Query loops.
type scanner interface {
	Scan(dest ...any) error
}

// escapeLike makes a user-supplied search string safe to embed between
// ILIKE wildcards: % and _ match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
