package database

import (
	"fmt"
	"strings"
)

// queryArgs hands out $n placeholders in the order values are added. Callers
// must splice the returned placeholders into the SQL in that same order.
type queryArgs struct {
	args []any
}

func (q *queryArgs) next(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// setClause collects "col = $n" assignments for an UPDATE.
type setClause struct {
	queryArgs
	parts []string
}

func (s *setClause) add(column string, v any) {
	s.parts = append(s.parts, column+" = "+s.next(v))
}

func (s *setClause) raw(expr string) {
	s.parts = append(s.parts, expr)
}

func (s *setClause) String() string {
	return strings.Join(s.parts, ", ")
}

func whereSQL(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
