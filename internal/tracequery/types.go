package tracequery

import "fmt"

// Column is a filterable delivery column.
type Column string

// The filterable columns. Text columns compare to strings, numeric columns
// to numbers.
const (
	ColumnCascade   Column = "cascade_token"
	ColumnSeq       Column = "seq"
	ColumnTimestamp Column = "timestamp"
	ColumnDepth     Column = "depth"
	ColumnSrcName   Column = "src_name"
	ColumnSrcEvent  Column = "src_event"
	ColumnDstName   Column = "dst_name"
	ColumnDstEvent  Column = "dst_event"
	ColumnFieldType Column = "field_type"
)

var columnKinds = map[Column]bool{ // true when numeric
	ColumnCascade:   false,
	ColumnSeq:       true,
	ColumnTimestamp: true,
	ColumnDepth:     true,
	ColumnSrcName:   false,
	ColumnSrcEvent:  false,
	ColumnDstName:   false,
	ColumnDstEvent:  false,
	ColumnFieldType: false,
}

// Numeric reports whether the column holds numbers.
func (c Column) Numeric() bool { return columnKinds[c] }

// Valid reports whether c is a filterable column.
func (c Column) Valid() bool {
	_, ok := columnKinds[c]
	return ok
}

// Query is a trace query. Sealed to this package.
type Query interface {
	queryNode()
}

// Predicate is a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Select returns the deliveries matching Filter in seq order.
//
// Semantics:
//
//	SELECT <delivery columns> FROM deliveries WHERE <filter>
//	ORDER BY seq ASC, id COLLATE BINARY ASC LIMIT <limit>
//
// A nil Filter matches every delivery; Limit 0 returns all matches.
type Select struct {
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Count returns how many deliveries match Filter.
type Count struct {
	Filter Predicate
}

func (Count) queryNode() {}

// Equals matches rows whose column equals Value.
//
//	dst_event = 'set_on'
type Equals struct {
	Column Column
	Value  any // string for text columns, number for numeric columns
}

func (Equals) predicateNode() {}

// Op is a comparison operator for numeric columns.
type Op string

const (
	OpLess      Op = "<"
	OpLessEq    Op = "<="
	OpGreater   Op = ">"
	OpGreaterEq Op = ">="
	OpNotEq     Op = "!="
)

// Compare matches rows where Column Op Value holds. OpNotEq also applies
// to text columns.
type Compare struct {
	Column Column
	Op     Op
	Value  any
}

func (Compare) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches every
// row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds the conjunction of preds, flattening nested conjunctions.
func Where(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch pp := p.(type) {
		case nil:
		case And:
			flat = append(flat, pp.Predicates...)
		default:
			flat = append(flat, p)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return And{Predicates: flat}
}

// To matches deliveries to node.event.
func To(node, event string) Predicate {
	return Where(Equals{ColumnDstName, node}, Equals{ColumnDstEvent, event})
}

// From matches deliveries routed from node.event.
func From(node, event string) Predicate {
	return Where(Equals{ColumnSrcName, node}, Equals{ColumnSrcEvent, event})
}

// InCascade matches deliveries of one cascade.
func InCascade(token string) Predicate {
	return Equals{ColumnCascade, token}
}

// QueryError reports an invalid query.
type QueryError struct {
	Column  Column
	Message string
}

func (e *QueryError) Error() string {
	if e.Column == "" {
		return "trace query: " + e.Message
	}
	return fmt.Sprintf("trace query: column %q: %s", e.Column, e.Message)
}
