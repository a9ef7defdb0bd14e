package sqlformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select",
			input:    "select * from Orders",
			expected: "SELECT *\nFROM Orders",
		},
		{
			name: "aliased join with relative date filter",
			input: "select c.Name, count(*) as order_count from Customer c join SalesOrderHeader soh " +
				"on c.CustomerID = soh.CustomerID where soh.OrderDate >= dateadd(year, -1, getdate()) " +
				"and c.Name like '%Bike%' group by c.Name order by order_count desc",
			expected: "SELECT c.Name,\n" +
				"       count(*) AS order_count\n" +
				"FROM Customer c\n" +
				"JOIN SalesOrderHeader soh ON c.CustomerID = soh.CustomerID\n" +
				"WHERE soh.OrderDate >= dateadd(year, -1, getdate())\n" +
				"  AND c.Name LIKE '%Bike%'\n" +
				"GROUP BY c.Name\n" +
				"ORDER BY order_count DESC",
		},
		{
			name:     "between keeps its AND inline",
			input:    "select a from t where d between 1 and 5 and x = 'it''s'",
			expected: "SELECT a\nFROM t\nWHERE d BETWEEN 1 AND 5\n  AND x = 'it''s'",
		},
		{
			name:     "left outer join on one line",
			input:    "select a.x from A a left outer join B b on a.id = b.id",
			expected: "SELECT a.x\nFROM A a\nLEFT OUTER JOIN B b ON a.id = b.id",
		},
		{
			name:     "left as a function",
			input:    "select left(name, 3) from p",
			expected: "SELECT LEFT(name, 3)\nFROM p",
		},
		{
			name:     "case expression",
			input:    "select case when a = 1 and b = 2 then 'x' else 'y' end as flag, n from t where a = 1 or b = 2",
			expected: "SELECT CASE WHEN a = 1 AND b = 2 THEN 'x' ELSE 'y' END AS flag,\n       n\nFROM t\nWHERE a = 1\n  OR b = 2",
		},
		{
			name:     "case inside where",
			input:    "select a from t where case when a = 1 and b = 2 then 1 else 0 end = 1 and c = 3",
			expected: "SELECT a\nFROM t\nWHERE CASE WHEN a = 1 AND b = 2 THEN 1 ELSE 0 END = 1\n  AND c = 3",
		},
		{
			name:     "whitespace collapsed",
			input:    "SELECT\n\t a ,b\nFROM   t",
			expected: "SELECT a,\n       b\nFROM t",
		},
		{
			name:     "top clause",
			input:    "select top 10 p.Name from Product p order by p.ListPrice desc",
			expected: "SELECT TOP 10 p.Name\nFROM Product p\nORDER BY p.ListPrice DESC",
		},
		{
			name:     "keyword after dot is a column",
			input:    "select t.order from t",
			expected: "SELECT t.order\nFROM t",
		},
		{
			name:     "trailing semicolon",
			input:    "select 1;",
			expected: "SELECT 1;",
		},
		{
			name:     "bracket identifiers",
			input:    "select [Order Date] from [dbo].[Orders]",
			expected: "SELECT [Order Date]\nFROM [dbo].[Orders]",
		},
		{
			name:     "subquery stays inline",
			input:    "select a from t where id in (select id from u where x = 1 and y = 2)",
			expected: "SELECT a\nFROM t\nWHERE id IN (SELECT id FROM u WHERE x = 1 AND y = 2)",
		},
		{
			name:     "union all",
			input:    "select a from t union all select a from u",
			expected: "SELECT a\nFROM t\nUNION ALL\nSELECT a\nFROM u",
		},
		{
			name:     "unary and binary minus",
			input:    "select a - 1 from t where x = -5",
			expected: "SELECT a - 1\nFROM t\nWHERE x = -5",
		},
		{
			name:     "limit and having",
			input:    "select k, sum(v) as total from t group by k having sum(v) > 10 and count(*) > 1 limit 5",
			expected: "SELECT k,\n       sum(v) AS total\nFROM t\nGROUP BY k\nHAVING sum(v) > 10\n  AND count(*) > 1\nLIMIT 5",
		},
		{
			name:     "unicode string literal",
			input:    "select n from t where n = N'Café'",
			expected: "SELECT n\nFROM t\nWHERE n = N'Café'",
		},
		{
			name:     "exponent literals",
			input:    "select 1e3 as n, 2.5E-4 as m from t where y > 1e+6",
			expected: "SELECT 1e3 AS n,\n       2.5E-4 AS m\nFROM t\nWHERE y > 1e+6",
		},
		{
			name:     "number then identifier",
			input:    "select 1 e from t",
			expected: "SELECT 1 e\nFROM t",
		},
		{
			name:     "empty",
			input:    "   \n ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.input))
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	inputs := []string{
		"select c.Name, count(*) as n from Customer c join Orders o on c.id = o.cid where o.d >= dateadd(month, -1, getdate()) and c.Name like '%a%' group by c.Name",
		"select a from t where d between 1 and 5",
	}
	for _, in := range inputs {
		once := Format(in)
		assert.Equal(t, once, Format(once))
	}
}

func TestTokenize_Comments(t *testing.T) {
	tokens := tokenize("select 1 -- trailing\n/* block */ from t")
	kinds := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.kind
	}
	assert.Equal(t, []tokenKind{tokWord, tokNumber, tokLineComment, tokBlockComment, tokWord, tokWord}, kinds)
	assert.Equal(t, "-- trailing", tokens[2].text)
}

func TestFormat_LineCommentForcesNewline(t *testing.T) {
	assert.Equal(t, "SELECT a -- pick a\nFROM t", Format("select a -- pick a\nfrom t"))
	assert.Equal(t, "SELECT a -- pick a\n,\n       b", Format("select a -- pick a\n, b"))
}
