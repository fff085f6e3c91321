package cypher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityEvent(row map[string]any) map[string]any {
	return map[string]any{"op": "c", "after": row}
}

func TestBuildEntityStatement_EndToEnd(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"payload": {
			"op": "c",
			"before": null,
			"after": {
				"id": "e1",
				"tenant_id": "t1",
				"entity_type": "Person",
				"data": {"name": "Ada"}
			}
		}
	}`)

	stmt, ok := BuildEntityStatement(raw)
	require.True(t, ok)
	assert.Nil(t, stmt.Parameters)

	want := "MERGE (e:Person {id: 'e1', tenant_id: 't1'})\n" +
		"SET e.id = 'e1'\n" +
		"SET e.tenant_id = 't1'\n" +
		"SET e.entity_type = 'Person'\n" +
		"SET e.name = 'Ada'\n" +
		"RETURN e;"
	assert.Equal(t, want, stmt.Query)
}

func TestBuildEntityStatement_KnownFieldsAndOverlay(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(entityEvent(map[string]any{
		"id":          "e1",
		"tenant_id":   "t1",
		"entity_type": "Person",
		"version":     1,
		"created_at":  "2026-01-01T00:00:00Z",
		"data":        map[string]any{"version": 2, "active": true},
	}))
	require.True(t, ok)

	// The data blob wins over the row's version, in the row field's
	// original position.
	want := "MERGE (e:Person {id: 'e1', tenant_id: 't1'})\n" +
		"SET e.id = 'e1'\n" +
		"SET e.tenant_id = 't1'\n" +
		"SET e.entity_type = 'Person'\n" +
		"SET e.version = 2\n" +
		"SET e.created_at = '2026-01-01T00:00:00Z'\n" +
		"SET e.active = true\n" +
		"RETURN e;"
	assert.Equal(t, want, stmt.Query)
}

func TestBuildEntityStatement_MissingRequiredField_Skips(t *testing.T) {
	t.Parallel()

	for _, field := range []string{"id", "tenant_id", "entity_type"} {
		t.Run("missing "+field, func(t *testing.T) {
			t.Parallel()
			row := map[string]any{
				"id":          "e1",
				"tenant_id":   "t1",
				"entity_type": "Person",
			}
			delete(row, field)
			_, ok := BuildEntityStatement(entityEvent(row))
			assert.False(t, ok)
		})
		t.Run("empty "+field, func(t *testing.T) {
			t.Parallel()
			row := map[string]any{
				"id":          "e1",
				"tenant_id":   "t1",
				"entity_type": "Person",
			}
			row[field] = ""
			_, ok := BuildEntityStatement(entityEvent(row))
			assert.False(t, ok)
		})
	}
}

func TestBuildEntityStatement_UndecodablePayload_Skips(t *testing.T) {
	t.Parallel()

	_, ok := BuildEntityStatement(nil)
	assert.False(t, ok)
	_, ok = BuildEntityStatement([]byte(`{"truncated`))
	assert.False(t, ok)
	_, ok = BuildEntityStatement(map[string]any{"op": "d"})
	assert.False(t, ok)
}

func TestBuildEntityStatement_DeleteUsesBeforeSnapshot(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(map[string]any{
		"op": "d",
		"before": map[string]any{
			"id":          "e1",
			"tenant_id":   "t1",
			"entity_type": "Person",
			"deleted_at":  "2026-02-01T00:00:00Z",
		},
	})
	require.True(t, ok)
	assert.Contains(t, stmt.Query, "SET e.deleted_at = '2026-02-01T00:00:00Z'")
}

func TestBuildEntityStatement_DataAsJSONString(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(entityEvent(map[string]any{
		"id":          "e1",
		"tenant_id":   "t1",
		"entity_type": "Person",
		"data":        `{"name": "Ada", "age": 36}`,
	}))
	require.True(t, ok)
	assert.Contains(t, stmt.Query, "SET e.age = 36")
	assert.Contains(t, stmt.Query, "SET e.name = 'Ada'")
}

func TestBuildEntityStatement_MalformedDataBlob_KnownFieldsStillApply(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(entityEvent(map[string]any{
		"id":          "e1",
		"tenant_id":   "t1",
		"entity_type": "Person",
		"version":     7,
		"data":        `{"broken`,
	}))
	require.True(t, ok)
	assert.Contains(t, stmt.Query, "SET e.version = 7")
	assert.NotContains(t, stmt.Query, "broken")
}

func TestBuildEntityStatement_UnsafeDataKeysDropped(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(entityEvent(map[string]any{
		"id":          "e1",
		"tenant_id":   "t1",
		"entity_type": "Person",
		"data": map[string]any{
			"good":              "kept",
			"bad key; MATCH":    "dropped",
			"also-bad = 'x' //": "dropped",
		},
	}))
	require.True(t, ok)
	assert.Contains(t, stmt.Query, "SET e.good = 'kept'")
	assert.NotContains(t, stmt.Query, "dropped")
	assert.NotContains(t, stmt.Query, "MATCH")
}

func TestBuildEntityStatement_QuotedValuesStayInsideLiterals(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement(entityEvent(map[string]any{
		"id":          "e'1",
		"tenant_id":   "t1",
		"entity_type": "Person",
	}))
	require.True(t, ok)
	assert.Contains(t, stmt.Query, fmt.Sprintf("MERGE (e:Person {id: %s, tenant_id: 't1'})", `'e\'1'`))
}

func TestBuildEntityStatement_NumericIdentityCoercedToText(t *testing.T) {
	t.Parallel()

	stmt, ok := BuildEntityStatement([]byte(`{
		"op": "c",
		"after": {"id": 101, "tenant_id": 7, "entity_type": "Person"}
	}`))
	require.True(t, ok)
	assert.Contains(t, stmt.Query, "MERGE (e:Person {id: '101', tenant_id: '7'})")
	assert.Contains(t, stmt.Query, "SET e.id = '101'")
}
