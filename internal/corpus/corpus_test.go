package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplesCSV = `id,question,sql
q1,Total sales this year,"SELECT SUM(soh.TotalDue) AS total_sales FROM SalesOrderHeader soh WHERE soh.OrderDate >= DATEADD(year, DATEDIFF(year, 0, GETDATE()), 0)"
q2,Top customers,"SELECT TOP 5 c.CustomerID FROM Customer c"
q3,Truncated row without reference
short
q4,"Products, by color","SELECT p.Color, COUNT(*) AS product_count FROM Product p GROUP BY p.Color"
`

func TestParseCSV(t *testing.T) {
	c, err := ParseCSV(Examples, strings.NewReader(examplesCSV), nil)
	require.NoError(t, err)

	assert.Equal(t, Examples, c.Name())
	assert.Equal(t, 4, c.Len(), "header and single-column row are skipped")

	entries := c.Entries()
	assert.Equal(t, Entry{ID: "q1", Document: "Total sales this year"}, entries[0])
	assert.Equal(t, "q3", entries[2].ID)
	assert.Equal(t, "Products, by color", entries[3].Document)

	assert.True(t, c.Has("q1"))
	assert.False(t, c.Has("q3"), "two-column row has no reference text")
}

func TestLookup_PreservesOrderAndDropsMissing(t *testing.T) {
	c, err := ParseCSV(Examples, strings.NewReader(examplesCSV), nil)
	require.NoError(t, err)

	refs := c.Lookup([]string{"q4", "q3", "nope", "q1"})
	require.Len(t, refs, 2)
	assert.True(t, strings.HasPrefix(refs[0], "SELECT p.Color"))
	assert.True(t, strings.HasPrefix(refs[1], "SELECT SUM(soh.TotalDue)"))

	assert.Empty(t, c.Lookup(nil))
	assert.Empty(t, c.Lookup([]string{"missing"}))
}

func TestParseCSV_DuplicateIDs(t *testing.T) {
	data := "id,doc,ref\na,first,ref1\na,second,ref2\n"
	c, err := ParseCSV(Schema, strings.NewReader(data), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len(), "first row wins for indexing")
	assert.Equal(t, []string{"ref2"}, c.Lookup([]string{"a"}), "last row wins for reference text")
}

func TestParseCSV_HeaderOnlyAndEmpty(t *testing.T) {
	c, err := ParseCSV(Schema, strings.NewReader("id,doc,ref\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	c, err = ParseCSV(Schema, strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	c, err := ParseCSV(Examples, strings.NewReader(examplesCSV), nil)
	require.NoError(t, err)

	entries := c.Entries()
	entries[0].ID = "changed"
	assert.Equal(t, "q1", c.Entries()[0].ID)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,doc,ref\ns1,Customer table,Table: Customer (CustomerID int)\n"), 0644))

	c, err := LoadCSV(Schema, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Table: Customer (CustomerID int)"}, c.Lookup([]string{"s1"}))

	_, err = LoadCSV(Schema, filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open corpus schema")
}
