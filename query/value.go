// Package query implements a WHERE-clause filter DSL over
// sampling.SampledFunction rows, parsed with sqlparser the way
// tracer/sql parses full SELECT statements, but narrowed to just the
// boolean expression a UI needs for ad hoc filtering.
package query

import "fmt"

const (
	BoolType   = "bool"
	FloatType  = "float"
	StringType = "string"
)

func errCast(from, to string) error {
	return fmt.Errorf("query: cannot cast %s to %s", from, to)
}

// Value is any node of a compiled WHERE expression: a constant, a column
// reference, or an operator combining other Values.
type Value interface {
	Bool() bool
	Float() float64
	String() string
	Type() string
	// WithRow binds column references to row's fields. Constants ignore it.
	WithRow(row Row)
}

// Row supplies field values by name for one filtered record.
type Row interface {
	Field(name string) Value
}

type boolConst bool

func (b boolConst) Bool() bool        { return bool(b) }
func (b boolConst) Float() float64    { panic(errCast(BoolType, FloatType)) }
func (b boolConst) String() string    { panic(errCast(BoolType, StringType)) }
func (b boolConst) Type() string      { return BoolType }
func (b boolConst) WithRow(row Row)   {}

type floatConst float64

func (f floatConst) Bool() bool      { panic(errCast(FloatType, BoolType)) }
func (f floatConst) Float() float64  { return float64(f) }
func (f floatConst) String() string  { panic(errCast(FloatType, StringType)) }
func (f floatConst) Type() string    { return FloatType }
func (f floatConst) WithRow(row Row) {}

type stringConst string

func (s stringConst) Bool() bool      { panic(errCast(StringType, BoolType)) }
func (s stringConst) Float() float64  { panic(errCast(StringType, FloatType)) }
func (s stringConst) String() string  { return string(s) }
func (s stringConst) Type() string    { return StringType }
func (s stringConst) WithRow(row Row) {}

// fieldRef is a named column; its Type is only known once bound to a Row.
type fieldRef struct {
	name   string
	bound  Value
}

func (f *fieldRef) Bool() bool     { return f.bound.Bool() }
func (f *fieldRef) Float() float64 { return f.bound.Float() }
func (f *fieldRef) String() string { return f.bound.String() }
func (f *fieldRef) Type() string {
	if f.bound == nil {
		panic(fmt.Sprintf("query: field %q used before binding to a row", f.name))
	}
	return f.bound.Type()
}
func (f *fieldRef) WithRow(row Row) {
	f.bound = row.Field(f.name)
}
