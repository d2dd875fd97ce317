package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// Predicate is one self-contained WHERE condition. Expr uses `?` placeholders
// and Args holds exactly the values they bind, so predicates compose without
// tracking positional indexes.
type Predicate struct {
	Expr string
	Args []interface{}
}

// Eq builds "column = ?".
func Eq(column string, value interface{}) Predicate {
	return Predicate{Expr: column + " = ?", Args: []interface{}{value}}
}

// Search matches the term as a literal substring of any of the columns,
// case-insensitively. The term binds once per column.
func Search(term string, columns ...string) Predicate {
	pattern := "%" + EscapeLike(term) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, column+" ILIKE ?")
		args = append(args, pattern)
	}
	return Predicate{Expr: "(" + strings.Join(parts, " OR ") + ")", Args: args}
}

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where joins predicates with AND. An empty set yields an empty clause.
func Where(preds ...Predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}
	exprs := make([]string, 0, len(preds))
	var args []interface{}
	for _, p := range preds {
		exprs = append(exprs, p.Expr)
		args = append(args, p.Args...)
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}

// rebind converts `?` placeholders to Postgres `$n`.
func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}
