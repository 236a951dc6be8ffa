package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/visibility"
)

type exprNode interface {
	eval(ctx visibility.Context) (bool, error)
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind   literalKind
	raw    string
	number float64
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n exprCompare) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)

	if list, ok := asList(value); ok && (n.op == tokenEq || n.op == tokenNeq) && n.literal.kind != litNull {
		found := false
		for _, item := range list {
			if equalLiteral(item, n.literal) {
				found = true
				break
			}
		}
		if n.op == tokenEq {
			return found, nil
		}
		return !found, nil
	}

	switch n.op {
	case tokenEq:
		return equalLiteral(value, n.literal), nil
	case tokenNeq:
		return !equalLiteral(value, n.literal), nil
	case tokenLt, tokenLte, tokenGt, tokenGte:
		return n.order(value)
	default:
		return false, fmt.Errorf("visibility/expr: unsupported operator %q", opString(n.op))
	}
}

func (n exprCompare) order(value any) (bool, error) {
	var cmp int
	switch n.literal.kind {
	case litNumber:
		got, ok := coerceNumber(value)
		if !ok {
			return false, nil
		}
		switch {
		case got < n.literal.number:
			cmp = -1
		case got > n.literal.number:
			cmp = 1
		}
	case litString:
		got := coerceString(value)
		if got == "" {
			return false, nil
		}
		cmp = strings.Compare(got, n.literal.raw)
	default:
		return false, fmt.Errorf("visibility/expr: operator %q needs a number or string literal", opString(n.op))
	}

	switch n.op {
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func equalLiteral(value any, lit literal) bool {
	switch lit.kind {
	case litNull:
		return value == nil || coerceString(value) == ""
	case litBool:
		got, _ := coerceBool(value)
		return got == (lit.raw == "true")
	case litNumber:
		got, ok := coerceNumber(value)
		return ok && got == lit.number
	default:
		return coerceString(value) == lit.raw
	}
}

func opString(op tokenKind) string {
	switch op {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	default:
		return "?"
	}
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx visibility.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type exprConst bool

func (n exprConst) eval(visibility.Context) (bool, error) { return bool(n), nil }

func collectIdentifiers(node exprNode, dest map[string]struct{}) {
	switch typed := node.(type) {
	case exprOr:
		collectIdentifiers(typed.left, dest)
		collectIdentifiers(typed.right, dest)
	case exprAnd:
		collectIdentifiers(typed.left, dest)
		collectIdentifiers(typed.right, dest)
	case exprNot:
		collectIdentifiers(typed.inner, dest)
	case exprCompare:
		addIdentifier(typed.identifier, dest)
	case exprTruthy:
		addIdentifier(typed.identifier, dest)
	}
}

func addIdentifier(ident string, dest map[string]struct{}) {
	ident = strings.TrimSpace(ident)
	if ident == "" || strings.HasPrefix(strings.ToLower(ident), "extras.") {
		return
	}
	dest[ident] = struct{}{}
	if root, _, found := strings.Cut(ident, "."); found {
		dest[root] = struct{}{}
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	if tok, ok := stream.consume(tokenBool); ok {
		return exprConst(tok.raw == "true"), nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte} {
		if !stream.match(op) {
			continue
		}
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	_, ok := s.consume(kind)
	return ok
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("visibility/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		number, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return literal{}, fmt.Errorf("visibility/expr: invalid number literal %q", tok.raw)
		}
		return literal{kind: litNumber, raw: tok.raw, number: number}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	case tokenIdentifier:
		// Bare words on the right-hand side read as strings: `status == active`.
		return literal{kind: litString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}
