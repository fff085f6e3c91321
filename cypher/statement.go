// Package cypher builds idempotent Cypher MERGE statements from CDC
// row snapshots. Property values are always escaped through the
// literal encoder; node labels and relationship types are interpolated
// verbatim and must come from schema-controlled columns (entity_type,
// relationship_type), never from untrusted input.
package cypher

// Statement is one graph mutation in the (query, parameters) shape
// statement executors accept. Parameters is currently always nil: all
// values are bound as escaped literals inside Query.
type Statement struct {
	Parameters map[string]any
	Query      string
}
