package query

import (
	"fmt"

	"github.com/xwb1989/sqlparser"
)

type andOp struct {
	Left, Right Value
}

func (o *andOp) Bool() bool      { return o.Left.Bool() && o.Right.Bool() }
func (o *andOp) Float() float64  { panic(errCast(BoolType, FloatType)) }
func (o *andOp) String() string  { panic(errCast(BoolType, StringType)) }
func (o *andOp) Type() string    { return BoolType }
func (o *andOp) WithRow(row Row) { o.Left.WithRow(row); o.Right.WithRow(row) }

type orOp struct {
	Left, Right Value
}

func (o *orOp) Bool() bool      { return o.Left.Bool() || o.Right.Bool() }
func (o *orOp) Float() float64  { panic(errCast(BoolType, FloatType)) }
func (o *orOp) String() string  { panic(errCast(BoolType, StringType)) }
func (o *orOp) Type() string    { return BoolType }
func (o *orOp) WithRow(row Row) { o.Left.WithRow(row); o.Right.WithRow(row) }

type notOp struct {
	Expr Value
}

func (o *notOp) Bool() bool      { return !o.Expr.Bool() }
func (o *notOp) Float() float64  { panic(errCast(BoolType, FloatType)) }
func (o *notOp) String() string  { panic(errCast(BoolType, StringType)) }
func (o *notOp) Type() string    { return BoolType }
func (o *notOp) WithRow(row Row) { o.Expr.WithRow(row) }

type compOp struct {
	Operator    string
	Left, Right Value
}

func (o *compOp) Bool() bool {
	t := o.Left.Type()
	if t2 := o.Right.Type(); t != t2 {
		panic(fmt.Errorf("query: mismatched types in comparison: %s %s %s", t, o.Operator, t2))
	}
	switch t {
	case FloatType:
		l, r := o.Left.Float(), o.Right.Float()
		switch o.Operator {
		case sqlparser.EqualStr:
			return l == r
		case sqlparser.NotEqualStr:
			return l != r
		case sqlparser.LessThanStr:
			return l < r
		case sqlparser.LessEqualStr:
			return l <= r
		case sqlparser.GreaterThanStr:
			return l > r
		case sqlparser.GreaterEqualStr:
			return l >= r
		}
	case StringType:
		l, r := o.Left.String(), o.Right.String()
		switch o.Operator {
		case sqlparser.EqualStr:
			return l == r
		case sqlparser.NotEqualStr:
			return l != r
		case sqlparser.LessThanStr:
			return l < r
		case sqlparser.GreaterThanStr:
			return l > r
		}
	case BoolType:
		l, r := o.Left.Bool(), o.Right.Bool()
		switch o.Operator {
		case sqlparser.EqualStr:
			return l == r
		case sqlparser.NotEqualStr:
			return l != r
		}
	}
	panic(fmt.Errorf("query: unsupported operator %q for type %s", o.Operator, t))
}
func (o *compOp) Float() float64  { panic(errCast(BoolType, FloatType)) }
func (o *compOp) String() string  { panic(errCast(BoolType, StringType)) }
func (o *compOp) Type() string    { return BoolType }
func (o *compOp) WithRow(row Row) { o.Left.WithRow(row); o.Right.WithRow(row) }

type rangeOp struct {
	Left, From, To Value
}

func (o *rangeOp) Bool() bool {
	v, from, to := o.Left.Float(), o.From.Float(), o.To.Float()
	return from <= v && v <= to
}
func (o *rangeOp) Float() float64  { panic(errCast(BoolType, FloatType)) }
func (o *rangeOp) String() string  { panic(errCast(BoolType, StringType)) }
func (o *rangeOp) Type() string    { return BoolType }
func (o *rangeOp) WithRow(row Row) { o.Left.WithRow(row); o.From.WithRow(row); o.To.WithRow(row) }
