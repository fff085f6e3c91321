package cdc_test

import (
	"testing"
	"time"

	cdc "github.com/ezeql/go-pq-cdc-memgraph"
	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entityProjectionHandler demonstrates customizing the built-in
// transformation. It keeps the standard entity statement but annotates
// every node with the capture operation, and drops hard deletes
// entirely so the graph only ever grows:
//
//	INSERT/UPDATE/SNAPSHOT -> entity MERGE plus a last_op marker
//	DELETE                 -> skipped (soft deletes arrive as UPDATEs)
func entityProjectionHandler(msg *cdc.Message) []cypher.Statement {
	if msg.Type.IsDelete() {
		return nil
	}

	stmt, ok := cypher.BuildEntityStatement(msg.Envelope())
	if !ok {
		return nil
	}

	marker := cypher.Statement{
		Query: "MERGE (e:Person {id: " + cypher.Literal(msg.NewData["id"]) + "})\n" +
			"SET e.last_op = " + cypher.Literal(string(msg.Type)) + "\n" +
			"RETURN e;",
	}
	return []cypher.Statement{stmt, marker}
}

// TestHandler_InsertEmitsEntityAndMarker verifies that a row INSERT
// produces the standard entity MERGE followed by the marker statement.
func TestHandler_InsertEmitsEntityAndMarker(t *testing.T) {
	msg := &cdc.Message{
		EventTime:      time.Now(),
		TableName:      "merged_entities",
		TableNamespace: "public",
		NewData: map[string]any{
			"id":          "e1",
			"tenant_id":   "t1",
			"entity_type": "Person",
			"data":        map[string]any{"name": "Alice"},
		},
		Type: cdc.InsertMessage,
	}

	out := entityProjectionHandler(msg)

	require.Len(t, out, 2)
	assert.Contains(t, out[0].Query, "MERGE (e:Person {id: 'e1', tenant_id: 't1'})")
	assert.Contains(t, out[0].Query, "SET e.name = 'Alice'")
	assert.Contains(t, out[1].Query, "SET e.last_op = 'INSERT'")
}

// TestHandler_UpdateUsesNewRowState verifies that an UPDATE projects
// the post-change row, not the pre-change one.
func TestHandler_UpdateUsesNewRowState(t *testing.T) {
	msg := &cdc.Message{
		EventTime:      time.Now(),
		TableName:      "merged_entities",
		TableNamespace: "public",
		OldData: map[string]any{
			"id": "e1", "tenant_id": "t1", "entity_type": "Person", "version": 1,
		},
		NewData: map[string]any{
			"id": "e1", "tenant_id": "t1", "entity_type": "Person", "version": 2,
		},
		Type: cdc.UpdateMessage,
	}

	out := entityProjectionHandler(msg)

	require.Len(t, out, 2)
	assert.Contains(t, out[0].Query, "SET e.version = 2")
	assert.NotContains(t, out[0].Query, "SET e.version = 1")
	assert.Contains(t, out[1].Query, "SET e.last_op = 'UPDATE'")
}

// TestHandler_DeleteIsSkipped verifies that a hard DELETE emits no
// statements, which the connector counts as a skipped operation.
func TestHandler_DeleteIsSkipped(t *testing.T) {
	msg := &cdc.Message{
		EventTime:      time.Now(),
		TableName:      "merged_entities",
		TableNamespace: "public",
		OldData: map[string]any{
			"id": "e1", "tenant_id": "t1", "entity_type": "Person",
		},
		Type: cdc.DeleteMessage,
	}

	assert.Empty(t, entityProjectionHandler(msg))
}

// TestHandler_IncompleteRowIsSkipped verifies that rows missing the
// identity columns are dropped by the built-in builder.
func TestHandler_IncompleteRowIsSkipped(t *testing.T) {
	msg := &cdc.Message{
		EventTime:      time.Now(),
		TableName:      "merged_entities",
		TableNamespace: "public",
		NewData:        map[string]any{"id": "e1"},
		Type:           cdc.InsertMessage,
	}

	assert.Empty(t, entityProjectionHandler(msg))
}
