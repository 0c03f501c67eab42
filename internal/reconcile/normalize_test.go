package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/stevedore/internal/record"
)

const structuredDetail = `{
	"type": "structured",
	"tables": [{
		"tableName": "orders",
		"schema": [{"name": "id", "type": "integer", "primary": true}],
		"rowsInserted": 42,
		"sqlCommands": ["CREATE TABLE orders"]
	}]
}`

func TestNormalizeDetailsObjectArrayAndMapAgree(t *testing.T) {
	asObject := json.RawMessage(structuredDetail)
	asArray := json.RawMessage("[" + structuredDetail + "]")
	asMap := json.RawMessage(`{"orders.csv": ` + structuredDetail + `}`)

	fromObject, err := NormalizeDetails(asObject)
	require.NoError(t, err)
	fromArray, err := NormalizeDetails(asArray)
	require.NoError(t, err)
	fromMap, err := NormalizeDetails(asMap)
	require.NoError(t, err)

	require.Len(t, fromObject, 1)
	assert.Equal(t, fromObject, fromArray)
	assert.Equal(t, fromObject, fromMap)
	assert.Equal(t, record.DetailStructured, fromObject[0].Type)
	assert.Equal(t, 42, fromObject[0].Tables[0].RowsInserted)
}

func TestNormalizeDetailsMapOrderedByKey(t *testing.T) {
	raw := json.RawMessage(`{
		"z.txt": {"type": "unstructured", "collection": "docs", "chunksCreated": 2},
		"a.txt": {"type": "unstructured", "collection": "docs", "chunksCreated": 1}
	}`)

	details, err := NormalizeDetails(raw)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, 1, details[0].ChunksCreated)
	assert.Equal(t, 2, details[1].ChunksCreated)
}

func TestNormalizeDetailsEmptyAndNull(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(""), json.RawMessage("null")} {
		details, err := NormalizeDetails(raw)
		require.NoError(t, err)
		assert.Nil(t, details)
	}
}

func TestNormalizeDetailsRejectsScalars(t *testing.T) {
	_, err := NormalizeDetails(json.RawMessage(`"done"`))
	assert.Error(t, err)
}

func TestNormalizeDetailsUnstructuredObject(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "unstructured",
		"collection": "documents",
		"chunksCreated": 18,
		"embeddingsGenerated": 18,
		"chunkingMethod": "recursive",
		"embeddingModel": "all-minilm-l6"
	}`)

	details, err := NormalizeDetails(raw)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, record.DetailUnstructured, details[0].Type)
	assert.Equal(t, "documents", details[0].Collection)
	assert.Equal(t, 18, details[0].EmbeddingsGenerated)
	assert.Equal(t, "recursive", details[0].ChunkingMethod)
}
