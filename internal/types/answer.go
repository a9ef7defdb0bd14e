package types

// ChartArtifact is the generated chart code plus its execution outcome.
// On success HTML holds the rendered chart; otherwise Err holds the last fault.
type ChartArtifact struct {
	Code     string `json:"code,omitempty"`
	HTML     string `json:"html,omitempty"`
	Err      string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
}

// Rendered reports whether the chart executed successfully
func (c *ChartArtifact) Rendered() bool {
	return c != nil && c.Err == "" && c.HTML != ""
}

// Answer is the output of one pipeline run. When Failure is set the query loop
// was exhausted and only Failure, Attempts and Context are meaningful.
type Answer struct {
	Question Question         `json:"question"`
	Context  RetrievedContext `json:"context"`
	SQL      string           `json:"sql,omitempty"`
	Result   *ResultSet       `json:"result,omitempty"`
	Summary  string           `json:"summary,omitempty"`
	Chart    *ChartArtifact   `json:"chart,omitempty"`
	Attempts int              `json:"attempts"`
	Failure  string           `json:"failure,omitempty"`
}

// Succeeded reports whether a query result was produced
func (a *Answer) Succeeded() bool {
	return a != nil && a.Failure == "" && a.Result != nil
}
