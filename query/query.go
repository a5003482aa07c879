package query

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"

	"github.com/orbitcore/profiler/sampling"
	"github.com/orbitcore/profiler/util"
)

var (
	ErrNotWhereExpr    = errors.New("query: expected a standalone boolean expression")
	ErrUnsupportedToken = errors.New("query: unsupported token in expression")
)

// Filter compiles whereExpr (e.g. `inclusive > 5 AND module = "libc.so"`)
// and returns the rows that satisfy it, in their original order.
func Filter(rows []sampling.SampledFunction, whereExpr string) ([]sampling.SampledFunction, error) {
	expr, err := Parse(whereExpr)
	if err != nil {
		return nil, err
	}

	var out []sampling.SampledFunction
	for _, r := range rows {
		var matched bool
		evalErr := util.PanicHandler(func() {
			expr.WithRow(functionRow{r})
			matched = expr.Bool()
		})
		if evalErr != nil {
			return nil, errors.Wrap(evalErr, "query: evaluating expression")
		}
		if matched {
			out = append(out, r)
		}
	}
	return out, nil
}

// Parse compiles a standalone WHERE-clause-shaped expression (no SELECT
// wrapper) into a Value tree ready for repeated evaluation via WithRow.
func Parse(whereExpr string) (Value, error) {
	stmt, err := sqlparser.Parse("select 1 from functions where " + whereExpr)
	if err != nil {
		return nil, errors.Wrap(err, "query: parsing expression")
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil {
		return nil, ErrNotWhereExpr
	}

	var v Value
	err = errors.Wrap(util.PanicHandler(func() {
		v = parseExpr(sel.Where.Expr)
	}), "query: compiling expression")
	if err != nil {
		return nil, err
	}
	return v, nil
}

func parseExpr(expr sqlparser.Expr) Value {
	switch expr := expr.(type) {
	case *sqlparser.AndExpr:
		return &andOp{Left: parseExpr(expr.Left), Right: parseExpr(expr.Right)}
	case *sqlparser.OrExpr:
		return &orOp{Left: parseExpr(expr.Left), Right: parseExpr(expr.Right)}
	case *sqlparser.NotExpr:
		return &notOp{Expr: parseExpr(expr.Expr)}
	case *sqlparser.ParenExpr:
		return parseExpr(expr.Expr)
	case *sqlparser.ComparisonExpr:
		return &compOp{Operator: expr.Operator, Left: parseExpr(expr.Left), Right: parseExpr(expr.Right)}
	case *sqlparser.RangeCond:
		r := &rangeOp{Left: parseExpr(expr.Left), From: parseExpr(expr.From), To: parseExpr(expr.To)}
		if expr.Operator == sqlparser.NotBetweenStr {
			return &notOp{Expr: r}
		}
		return r
	case *sqlparser.SQLVal:
		switch expr.Type {
		case sqlparser.StrVal:
			return stringConst(string(expr.Val))
		case sqlparser.IntVal, sqlparser.FloatVal:
			f, err := strconv.ParseFloat(string(expr.Val), 64)
			if err != nil {
				panic(err)
			}
			return floatConst(f)
		default:
			panic(ErrUnsupportedToken)
		}
	case *sqlparser.ColName:
		return &fieldRef{name: expr.Name.String()}
	default:
		panic(fmt.Errorf("query: unsupported expression %T", expr))
	}
}

// functionRow adapts sampling.SampledFunction to Row, exposing its columns
// by the names a WHERE clause would use.
type functionRow struct {
	fn sampling.SampledFunction
}

func (r functionRow) Field(name string) Value {
	switch name {
	case "name":
		return stringConst(r.fn.Name)
	case "module":
		return stringConst(r.fn.Module)
	case "address":
		return floatConst(float64(r.fn.Address))
	case "exclusive":
		return floatConst(r.fn.Exclusive)
	case "inclusive":
		return floatConst(r.fn.Inclusive)
	default:
		panic(fmt.Errorf("query: unknown column %q", name))
	}
}
