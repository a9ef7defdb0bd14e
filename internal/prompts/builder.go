package prompts

import (
	"regexp"
	"strings"
)

// Dialect selects the SQL flavour the query prompt asks for
type Dialect string

// Supported dialects
const (
	DialectTSQL       Dialect = "tsql"
	DialectPostgres   Dialect = "postgres"
	DialectSQLite     Dialect = "sqlite"
	DialectClickHouse Dialect = "clickhouse"
)

var dialectNames = map[Dialect]string{
	DialectTSQL:       "T-SQL (SQL Server)",
	DialectPostgres:   "PostgreSQL",
	DialectSQLite:     "SQLite",
	DialectClickHouse: "ClickHouse SQL",
}

// ParseDialect maps a dialect or driver name to a Dialect, defaulting to T-SQL
func ParseDialect(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "clickhouse":
		return DialectClickHouse
	default:
		return DialectTSQL
	}
}

// Name returns the human-readable dialect name used in prompts
func (d Dialect) Name() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return dialectNames[DialectTSQL]
}

func (d Dialect) hints() string {
	key := "dialect-" + string(d)
	if _, ok := dialectNames[d]; !ok {
		key = "dialect-tsql"
	}
	return MustGet("query.json", key)
}

const (
	contextSeparator = "\n\n"
	noTablesHint     = "the tables listed in the schema information"
	defaultHint      = "summarize the above info"
)

// BuildQueryPrompt builds the instruction for SQL generation from the question and the
// retrieved schema and example texts. The output depends only on its inputs.
func BuildQueryPrompt(question string, schemaTexts, exampleTexts []string, dialect Dialect) string {
	return Format(MustGet("query.json", "generate-sql"), map[string]string{
		"DialectName":  dialect.Name(),
		"DialectHints": dialect.hints(),
		"Schema":       strings.Join(schemaTexts, contextSeparator),
		"Examples":     strings.Join(exampleTexts, contextSeparator),
		"Question":     question,
	})
}

// BuildQueryReflectionPrompt carries the original prompt and the observed fault back to
// the generation service together with the correction checklist.
func BuildQueryReflectionPrompt(originalPrompt, fault string, tables []string, dialect Dialect) string {
	tableList := noTablesHint
	if len(tables) > 0 {
		quoted := make([]string, len(tables))
		for i, t := range tables {
			quoted[i] = "'" + t + "'"
		}
		tableList = strings.Join(quoted, ", ")
	}
	return Format(MustGet("query.json", "reflect-sql"), map[string]string{
		"Prompt":      originalPrompt,
		"Error":       fault,
		"Tables":      tableList,
		"DialectName": dialect.Name(),
	})
}

// BuildChartPrompt builds the instruction for chart code generation
func BuildChartPrompt(sql, question, schemaText string, columns []string) string {
	return Format(MustGet("chart.json", "generate-chart"), map[string]string{
		"Schema":   schemaText,
		"SQL":      sql,
		"Question": question,
		"API":      MustGet("chart.json", "chart-api"),
		"Columns":  strings.Join(columns, ", "),
	})
}

// BuildChartReflectionPrompt asks for new chart code after a sandbox fault
func BuildChartReflectionPrompt(question, fault string, columns []string) string {
	return Format(MustGet("chart.json", "reflect-chart"), map[string]string{
		"Error":    fault,
		"Question": question,
		"API":      MustGet("chart.json", "chart-api"),
		"Columns":  strings.Join(columns, ", "),
	})
}

// BuildSummaryPrompt builds the summarization instruction. An empty hint uses the
// default "summarize the above info".
func BuildSummaryPrompt(question, table, hint string) string {
	if strings.TrimSpace(hint) == "" {
		hint = defaultHint
	}
	prompt := Format(MustGet("summary.json", "summarize"), map[string]string{
		"Question": question,
		"Table":    table,
	})
	return prompt + Format(MustGet("summary.json", "summarize-hint"), map[string]string{"Hint": hint})
}

var tableNamePattern = regexp.MustCompile(`(?i)(?:create\s+table|table\s*:|table\s+name\s*:)\s*([\[\]"` + "`" + `\w.]+)`)

// TablesFromSchema extracts table names from schema descriptions written as
// "CREATE TABLE name" or "Table: name". Order of first appearance is kept.
func TablesFromSchema(schemaTexts []string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, text := range schemaTexts {
		for _, m := range tableNamePattern.FindAllStringSubmatch(text, -1) {
			name := strings.Trim(m[1], "[]\"`")
			name = strings.ReplaceAll(name, "].[", ".")
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			tables = append(tables, name)
		}
	}
	return tables
}
