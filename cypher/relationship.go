package cypher

import (
	"fmt"
	"strings"

	"github.com/ezeql/go-pq-cdc-memgraph/debezium"
)

// relationshipFields are the known provenance and timestamp columns
// copied onto the edge when present, in emission order.
var relationshipFields = []string{"source_plan_id", "source_execution_id", "created_at", "updated_at", "deleted_at"}

// BuildRelationshipStatement transforms one raw relationship change
// event into a statement that merges both endpoint nodes by
// (id, tenant_id) identity and a typed directed edge between them.
// Endpoint nodes get no properties here; enrichment arrives through
// the entity pipeline for the same identity.
func BuildRelationshipStatement(raw any) (Statement, bool) {
	row := debezium.Decode(raw).Row()
	if row == nil {
		return Statement{}, false
	}

	tenantID := row["tenant_id"]
	relType := row["relationship_type"]
	relID := row["id"]
	fromID := row["from_merged_entity_id"]
	toID := row["to_merged_entity_id"]
	fromType := row["from_entity_type"]
	toType := row["to_entity_type"]
	for _, required := range []any{tenantID, relType, relID, fromID, toID, fromType, toType} {
		if falsy(required) {
			return Statement{}, false
		}
	}

	props := NewProps()
	props.Set("id", asText(relID))
	props.Set("tenant_id", asText(tenantID))
	for _, k := range relationshipFields {
		if v, ok := row[k]; ok {
			props.Set(k, v)
		}
	}
	props.Merge(row.Data())

	idLit, _ := props.Get("id")
	tenantLit, _ := props.Get("tenant_id")

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (a:%s {id: %s, tenant_id: %s})\n",
		asText(fromType), Literal(asText(fromID)), Literal(asText(tenantID)))
	fmt.Fprintf(&b, "MERGE (b:%s {id: %s, tenant_id: %s})\n",
		asText(toType), Literal(asText(toID)), Literal(asText(tenantID)))
	fmt.Fprintf(&b, "MERGE (a)-[r:%s {id: %s, tenant_id: %s}]->(b)",
		asText(relType), Literal(idLit), Literal(tenantLit))
	if set := setClauses("r", props, nil); set != "" {
		b.WriteByte('\n')
		b.WriteString(set)
	}
	b.WriteString("\nRETURN r;")

	return Statement{Query: b.String()}, true
}
