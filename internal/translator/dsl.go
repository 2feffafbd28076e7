package translator

import (
	"fmt"

	"github.com/kadirpekel/jsonstorage/internal/pathparser"
)

// Expr is the filter-DSL abstract syntax tree produced by Parse and
// consumed by Compile. Exported so callers (and tests) can compare two
// parses for the DSL round-trip property in spec §8.
type Expr interface{ isExpr() }

// Condition is a single comparison: <path> <op> <literal>.
type Condition struct {
	Path  string
	Op    string
	Value any
}

// NotExpr negates its inner expression.
type NotExpr struct{ Expr Expr }

// AndExpr is a conjunction of two expressions.
type AndExpr struct{ Left, Right Expr }

// OrExpr is a disjunction of two expressions.
type OrExpr struct{ Left, Right Expr }

func (Condition) isExpr() {}
func (NotExpr) isExpr()   {}
func (AndExpr) isExpr()   {}
func (OrExpr) isExpr()    {}

// ParseExpr parses a filter-DSL expression string into an Expr tree.
// Grammar (low to high precedence):
//
//	or   := and ('||' and)*
//	and  := unary ('&&' unary)*
//	unary := '!' unary | primary
//	primary := '(' or ')' | condition
//	condition := PATH OP literal
//
// A `!=` condition is rewritten at parse time into NotExpr{Condition{op:"=="}}
// so the compiler has one fewer case to special-case.
func ParseExpr(s string) (Expr, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("translator: unexpected tokens at position %d", p.pos)
	}
	return expr, nil
}

// BuildQuery parses a filter-DSL expression and compiles it to a search
// query document: {"query": <clause>}.
func BuildQuery(s string) (map[string]any, error) {
	expr, err := ParseExpr(s)
	if err != nil {
		return nil, err
	}
	clause, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"query": clause}, nil
}

// Compile lowers an Expr into the search engine's JSON query clause,
// applying the nested-query wrapping described in spec §4.2.3.
func Compile(expr Expr) (map[string]any, error) {
	switch e := expr.(type) {
	case Condition:
		segments, err := pathparser.Parse(e.Path)
		if err != nil {
			return nil, err
		}
		idxPath, err := ToIndexPath(segments)
		if err != nil {
			return nil, err
		}

		var inner map[string]any
		switch e.Op {
		case "==":
			inner = map[string]any{"term": map[string]any{idxPath.Field: e.Value}}
		case ">", ">=", "<", "<=":
			rangeOp := map[string]string{">": "gt", ">=": "gte", "<": "lt", "<=": "lte"}[e.Op]
			inner = map[string]any{"range": map[string]any{
				idxPath.Field: map[string]any{rangeOp: e.Value},
			}}
		default:
			return nil, fmt.Errorf("translator: unsupported operator %q", e.Op)
		}

		if idxPath.IsNested {
			return map[string]any{
				"nested": map[string]any{
					"path":  idxPath.NestedPath,
					"query": inner,
				},
			}, nil
		}
		return inner, nil

	case NotExpr:
		inner, err := Compile(e.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"must_not": []any{inner}}}, nil

	case AndExpr:
		left, err := Compile(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := Compile(e.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{"must": []any{left, right}}}, nil

	case OrExpr:
		left, err := Compile(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := Compile(e.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"bool": map[string]any{
			"should":               []any{left, right},
			"minimum_should_match": 1,
		}}, nil

	default:
		return nil, fmt.Errorf("translator: unsupported expression node %T", expr)
	}
}
