package schemas

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, name := range []string{Config, AskRequest} {
		t.Run(name, func(t *testing.T) {
			data, err := FS.ReadFile(name)
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]any
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON: %s", name)
			assert.Equal(t, "object", v["type"])
			assert.NotEmpty(t, v["$id"])
		})
	}
}

func TestFS_OnlySchemaDocuments(t *testing.T) {
	names, err := fs.Glob(FS, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{Config, AskRequest}, names)
}
