package graphdb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"csgclient/domain/graph"
)

// toDoc round-trips an export through JSON the way it is stored on disk
func toDoc(t *testing.T, v interface{}) interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	doc, err := graph.DecodeJSON(data)
	require.NoError(t, err)
	return doc
}
