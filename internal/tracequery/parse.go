package tracequery

import (
	"fmt"
	"strconv"
	"strings"
)

// operators in match order; two-character operators first.
var operators = []Op{OpLessEq, OpGreaterEq, OpNotEq, OpLess, OpGreater, "="}

// aliases maps short filter keys to columns.
var aliases = map[string]Column{
	"cascade": ColumnCascade,
	"seq":     ColumnSeq,
	"time":    ColumnTimestamp,
	"depth":   ColumnDepth,
	"type":    ColumnFieldType,
}

// ParseFilter parses a whitespace-separated list of terms, all of which
// must hold:
//
//	key=value   key!=value   key<n   key<=n   key>n   key>=n
//
// Keys are column names or the short forms cascade, seq, time, depth and
// type. Two keys take a Node.event endpoint and only support '=':
//
//	to=Node.event     delivered to that input
//	from=Node.event   routed from that output
//
// An empty string parses to a nil predicate, which matches everything.
func ParseFilter(s string) (Predicate, error) {
	var preds []Predicate
	for _, term := range strings.Fields(s) {
		p, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return Where(preds...), nil
}

func parseTerm(term string) (Predicate, error) {
	key, op, value, ok := splitTerm(term)
	if !ok {
		return nil, &QueryError{Message: fmt.Sprintf("term %q has no operator", term)}
	}

	if key == "to" || key == "from" {
		if op != "=" {
			return nil, &QueryError{Message: fmt.Sprintf("term %q: %s only supports '='", term, key)}
		}
		node, event, found := strings.Cut(value, ".")
		if !found || node == "" || event == "" {
			return nil, &QueryError{Message: fmt.Sprintf("term %q: expected Node.event", term)}
		}
		if key == "to" {
			return To(node, event), nil
		}
		return From(node, event), nil
	}

	col, ok := aliases[key]
	if !ok {
		col = Column(key)
	}
	if !col.Valid() {
		return nil, &QueryError{Column: col, Message: "unknown column"}
	}

	var v any = value
	if col.Numeric() {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &QueryError{Column: col, Message: fmt.Sprintf("%q is not a number", value)}
		}
		if i := int64(n); float64(i) == n && col != ColumnTimestamp {
			v = i
		} else {
			v = n
		}
	}

	if op == "=" {
		return Equals{Column: col, Value: v}, nil
	}
	return Compare{Column: col, Op: op, Value: v}, nil
}

func splitTerm(term string) (string, Op, string, bool) {
	for i := 0; i < len(term); i++ {
		for _, op := range operators {
			if strings.HasPrefix(term[i:], string(op)) {
				return term[:i], op, term[i+len(op):], i > 0
			}
		}
	}
	return "", "", "", false
}
