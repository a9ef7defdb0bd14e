package chart

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Kind is the chart type of a Figure
type Kind string

// Supported chart kinds
const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindPie     Kind = "pie"
	KindScatter Kind = "scatter"
)

// Series is one named sequence of values
type Series struct {
	Name   string
	Values []float64
}

// Figure is the chart description built by generated code. Setters return the
// figure so calls can be chained.
type Figure struct {
	kind   Kind
	title  string
	labels []string
	series []Series
	xName  string
	yName  string
}

// NewBar creates a bar chart
func NewBar(title string) *Figure { return &Figure{kind: KindBar, title: title} }

// NewLine creates a line chart
func NewLine(title string) *Figure { return &Figure{kind: KindLine, title: title} }

// NewPie creates a pie chart
func NewPie(title string) *Figure { return &Figure{kind: KindPie, title: title} }

// NewScatter creates a scatter chart
func NewScatter(title string) *Figure { return &Figure{kind: KindScatter, title: title} }

// SetX sets the category labels
func (f *Figure) SetX(labels []string) *Figure {
	f.labels = append([]string(nil), labels...)
	return f
}

// AddSeries appends a series
func (f *Figure) AddSeries(name string, values []float64) *Figure {
	f.series = append(f.series, Series{Name: name, Values: append([]float64(nil), values...)})
	return f
}

// SetAxisNames names the axes
func (f *Figure) SetAxisNames(x, y string) *Figure {
	f.xName, f.yName = x, y
	return f
}

// Kind returns the chart type
func (f *Figure) Kind() Kind { return f.kind }

// Title returns the chart title
func (f *Figure) Title() string { return f.title }

// Series returns the series in insertion order
func (f *Figure) Series() []Series { return append([]Series(nil), f.series...) }

// Validate checks the figure can be drawn
func (f *Figure) Validate() error {
	if len(f.series) == 0 {
		return fmt.Errorf("figure %q has no data series; call AddSeries before render", f.title)
	}
	if f.kind == KindPie && len(f.series) > 1 {
		return fmt.Errorf("pie chart %q takes exactly one series, got %d", f.title, len(f.series))
	}
	if len(f.labels) == 0 {
		return nil
	}
	for _, s := range f.series {
		if len(s.Values) != len(f.labels) {
			return fmt.Errorf("series %q has %d values but %d labels were set", s.Name, len(s.Values), len(f.labels))
		}
	}
	return nil
}

func (f *Figure) xLabels() []string {
	if len(f.labels) > 0 {
		return f.labels
	}
	n := 0
	for _, s := range f.series {
		n = max(n, len(s.Values))
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

type renderer interface {
	Render(w io.Writer) error
}

// Render writes the figure as a standalone HTML page
func (f *Figure) Render(w io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	title := charts.WithTitleOpts(opts.Title{Title: f.title})
	xAxis := charts.WithXAxisOpts(opts.XAxis{Name: f.xName})
	yAxis := charts.WithYAxisOpts(opts.YAxis{Name: f.yName})
	labels := f.xLabels()

	var r renderer
	switch f.kind {
	case KindBar:
		c := charts.NewBar()
		c.SetGlobalOptions(title, xAxis, yAxis)
		c.SetXAxis(labels)
		for _, s := range f.series {
			data := make([]opts.BarData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.BarData{Value: v}
			}
			c.AddSeries(s.Name, data)
		}
		r = c
	case KindLine:
		c := charts.NewLine()
		c.SetGlobalOptions(title, xAxis, yAxis)
		c.SetXAxis(labels)
		for _, s := range f.series {
			data := make([]opts.LineData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.LineData{Value: v}
			}
			c.AddSeries(s.Name, data)
		}
		r = c
	case KindScatter:
		c := charts.NewScatter()
		c.SetGlobalOptions(title, xAxis, yAxis)
		c.SetXAxis(labels)
		for _, s := range f.series {
			data := make([]opts.ScatterData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.ScatterData{Value: v}
			}
			c.AddSeries(s.Name, data)
		}
		r = c
	case KindPie:
		c := charts.NewPie()
		c.SetGlobalOptions(title)
		s := f.series[0]
		data := make([]opts.PieData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.PieData{Name: labels[i], Value: v}
		}
		c.AddSeries(s.Name, data)
		r = c
	default:
		return fmt.Errorf("unsupported chart kind %q", f.kind)
	}
	return r.Render(w)
}

// HTML renders the figure into a string
func (f *Figure) HTML() (string, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
