package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formgrid/pkg/visibility"
)

// Evaluator compiles and caches predicate programs.
//
// Supported forms:
//   - truthiness: `subscribe`, `!subscribe`
//   - equality: `country == "US"`, `count != 3`, `agree == true`, `notes == null`
//   - ordering: `age >= 18`, `start < "2025-01-01"`
//   - composition: `a == "x" && (b || !c)`
//
// Equality against a list value (multiselect) tests membership. Values are read
// from visibility.Context.Values with dot-path traversal, and from
// visibility.Context.Extras through the `extras.` prefix.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{programs: make(map[string]*Program)}
}

var (
	_ visibility.Evaluator          = (*Evaluator)(nil)
	_ visibility.DependencyAnalyzer = (*Evaluator)(nil)
)

// Eval compiles rule (once) and evaluates it. An empty rule is true.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	program, err := e.program(rule)
	if err != nil {
		return false, err
	}
	return program.Eval(ctx)
}

// Dependencies lists the value keys rule reads, excluding extras.
func (e *Evaluator) Dependencies(rule string) ([]string, error) {
	program, err := e.program(rule)
	if err != nil {
		return nil, err
	}
	return program.Identifiers(), nil
}

func (e *Evaluator) program(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	e.mu.RLock()
	program, ok := e.programs[key]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := Compile(key)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.programs == nil {
		e.programs = make(map[string]*Program)
	}
	e.programs[key] = program
	e.mu.Unlock()
	return program, nil
}

// Program is a compiled predicate. It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   exprNode
	idents []string
}

// Compile parses rule into a Program.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	program := &Program{source: trimmed}
	if trimmed == "" {
		return program, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return program, nil
	}

	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	program.root = root

	seen := make(map[string]struct{})
	collectIdentifiers(root, seen)
	for ident := range seen {
		program.idents = append(program.idents, ident)
	}
	sort.Strings(program.idents)
	return program, nil
}

// MustCompile panics when rule does not parse.
func MustCompile(rule string) *Program {
	program, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return program
}

// Source returns the rule text.
func (p *Program) Source() string { return p.source }

// Identifiers returns the top-level value keys read by the program.
func (p *Program) Identifiers() []string {
	return append([]string(nil), p.idents...)
}

// Eval evaluates the program. An empty program is true.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>':
		return true
	default:
		return false
	}
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	for i < len(input) {
		ch := input[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			i++
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '!':
			if peek(1) == '=' {
				i += 2
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			i++
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '=':
			if peek(1) != '=' {
				return nil, errors.New("visibility/expr: unexpected '='; use '=='")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '<', '>':
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			if peek(1) == '=' {
				i += 2
				if kind == tokenLt {
					tokens = append(tokens, token{kind: tokenLte, raw: "<="})
				} else {
					tokens = append(tokens, token{kind: tokenGte, raw: ">="})
				}
				continue
			}
			i++
			tokens = append(tokens, token{kind: kind, raw: raw})
		case '&':
			if peek(1) != '&' {
				return nil, errors.New("visibility/expr: unexpected '&'; use '&&'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			if peek(1) != '|' {
				return nil, errors.New("visibility/expr: unexpected '|'; use '||'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			tok, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}

	return tokens, nil
}

func scanString(input string, start int) (token, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return token{}, 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		return token{kind: tokenString, raw: value}, i + 1, nil
	}
	return token{}, 0, errors.New("visibility/expr: unterminated string literal")
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	case "and":
		return token{kind: tokenAnd, raw: "&&"}
	case "or":
		return token{kind: tokenOr, raw: "||"}
	case "not":
		return token{kind: tokenNot, raw: "!"}
	}
	if looksLikeNumber(raw) {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}
