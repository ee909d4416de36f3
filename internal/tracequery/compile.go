package tracequery

import (
	"fmt"
	"strings"

	"github.com/roach88/scenecore/internal/store"
)

// orderBy is appended to every row query.
const orderBy = " ORDER BY seq ASC, id COLLATE BINARY ASC"

// Compile converts a query to parameterized SQL over the deliveries table.
// Returns (sql, params, error).
//
// MANDATORY: Every Select includes ORDER BY with a deterministic tiebreaker.
// MANDATORY: All values are parameterized (never interpolated).
func Compile(q Query) (string, []any, error) {
	if q == nil {
		return "", nil, &QueryError{Message: "cannot compile nil query"}
	}

	switch query := q.(type) {
	case Select:
		return compileSelect(query)
	case *Select:
		return compileSelect(*query)
	case Count:
		return compileCount(query)
	case *Count:
		return compileCount(*query)
	default:
		return "", nil, &QueryError{Message: fmt.Sprintf("unsupported query type: %T", q)}
	}
}

func compileSelect(q Select) (string, []any, error) {
	if q.Limit < 0 {
		return "", nil, &QueryError{Message: fmt.Sprintf("negative limit %d", q.Limit)}
	}
	where, params, err := compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := "SELECT " + store.DeliveryColumns + " FROM deliveries" + where + orderBy
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

func compileCount(q Count) (string, []any, error) {
	where, params, err := compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM deliveries" + where, params, nil
}

func compileWhere(p Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func compilePredicate(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case Equals:
		return compileComparison(pred.Column, "=", pred.Value)
	case *Equals:
		return compileComparison(pred.Column, "=", pred.Value)
	case Compare:
		return compileCompare(pred)
	case *Compare:
		return compileCompare(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, &QueryError{Message: fmt.Sprintf("unsupported predicate type: %T", p)}
	}
}

func compileCompare(c Compare) (string, []any, error) {
	switch c.Op {
	case OpNotEq:
		return compileComparison(c.Column, "!=", c.Value)
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		if c.Column.Valid() && !c.Column.Numeric() {
			return "", nil, &QueryError{Column: c.Column, Message: fmt.Sprintf("operator %s needs a numeric column", c.Op)}
		}
		return compileComparison(c.Column, string(c.Op), c.Value)
	default:
		return "", nil, &QueryError{Column: c.Column, Message: fmt.Sprintf("unknown operator %q", c.Op)}
	}
}

// compileComparison emits "column op ?". The column is checked against the
// whitelist and the value against the column's kind.
func compileComparison(col Column, op string, value any) (string, []any, error) {
	if !col.Valid() {
		return "", nil, &QueryError{Column: col, Message: "unknown column"}
	}
	param, err := toParam(col, value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", col, op), []any{param}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam converts a predicate value to a SQL parameter of the column's
// kind.
func toParam(col Column, v any) (any, error) {
	if !col.Numeric() {
		s, ok := v.(string)
		if !ok {
			return nil, &QueryError{Column: col, Message: fmt.Sprintf("expected string value, got %T", v)}
		}
		return s, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return nil, &QueryError{Column: col, Message: fmt.Sprintf("expected numeric value, got %T", v)}
	}
}
