// Package tracequery filters recorded deliveries.
//
// A Query is a conjunction of predicates over a fixed set of delivery
// columns. Query and Predicate are sealed interfaces using the marker
// method pattern, so the SQL compiler can switch over every variant:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case And:
//	}
//
// Compilation guarantees:
//   - Column names come from a whitelist, never from input text
//   - Values are always parameterized, never interpolated
//   - Results are ordered by seq ASC, id COLLATE BINARY ASC
//
// Filters can also be written as text for the command line, one term per
// word:
//
//	to=Bulb.set_on depth>=1 type=SFBool
//
// See ParseFilter for the grammar.
package tracequery
