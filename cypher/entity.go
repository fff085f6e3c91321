package cypher

import (
	"fmt"
	"strings"

	"github.com/ezeql/go-pq-cdc-memgraph/debezium"
)

// entityFields are the known scalar row columns copied onto the node
// when present, in emission order.
var entityFields = []string{"version", "source_count", "created_at", "updated_at", "deleted_at"}

// BuildEntityStatement transforms one raw entity change event into a
// MERGE statement keyed by (id, tenant_id) and labeled by the row's
// entity_type. The second return is false when the event should be
// skipped: undecodable payload, tombstone, or missing identity fields.
func BuildEntityStatement(raw any) (Statement, bool) {
	row := debezium.Decode(raw).Row()
	if row == nil {
		return Statement{}, false
	}

	id := row["id"]
	tenantID := row["tenant_id"]
	entityType := row["entity_type"]
	if falsy(id) || falsy(tenantID) || falsy(entityType) {
		return Statement{}, false
	}

	props := NewProps()
	props.Set("id", asText(id))
	props.Set("tenant_id", asText(tenantID))
	props.Set("entity_type", asText(entityType))
	for _, k := range entityFields {
		if v, ok := row[k]; ok {
			props.Set(k, v)
		}
	}
	// Flatten the data blob onto the node; blob fields win over
	// same-named row fields.
	props.Merge(row.Data())

	idLit, _ := props.Get("id")
	tenantLit, _ := props.Get("tenant_id")

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (e:%s {id: %s, tenant_id: %s})", asText(entityType), Literal(idLit), Literal(tenantLit))
	if set := setClauses("e", props, nil); set != "" {
		b.WriteByte('\n')
		b.WriteString(set)
	}
	b.WriteString("\nRETURN e;")

	return Statement{Query: b.String()}, true
}
