package chart

import "reflect"

// ImportPath is the only package chart code can import
const ImportPath = "askdb/chart"

// Symbols is the interpreter export table for ImportPath
var Symbols = map[string]map[string]reflect.Value{
	ImportPath + "/chart": {
		"Frame":      reflect.ValueOf((*Frame)(nil)),
		"Figure":     reflect.ValueOf((*Figure)(nil)),
		"Series":     reflect.ValueOf((*Series)(nil)),
		"Kind":       reflect.ValueOf((*Kind)(nil)),
		"NewBar":     reflect.ValueOf(NewBar),
		"NewLine":    reflect.ValueOf(NewLine),
		"NewPie":     reflect.ValueOf(NewPie),
		"NewScatter": reflect.ValueOf(NewScatter),
	},
}
