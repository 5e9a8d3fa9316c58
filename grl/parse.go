// Copyright 2026 The Rule Engine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package grl

import (
	"fmt"
	"strconv"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// Parse compiles GRL source text into a Ruleset (§4.1). Parsing is total:
// it never panics on malformed input, returning a *rerr.Error with one of
// the `lex`, `syntax`, `duplicate_rule_name`, or `unknown_function`
// sub-kinds instead. reg resolves FnCall names at parse time; pass nil if
// the ruleset contains no function calls.
func Parse(src string, reg registry.Registry) (ruleset *Ruleset, err error) {
	p := &parser{lex: newLexer(src), reg: reg}

	// The hand-written recursive-descent parser below is careful to return
	// structured errors at every failure point rather than index out of
	// range; this recover is a last-resort guard against a missed case,
	// converted to an `internal` error rather than crossing the host
	// boundary as a panic (§7 "Internal errors ... never panic").
	defer func() {
		if r := recover(); r != nil {
			ruleset = nil
			err = rerr.Newf(rerr.CodeInternal, "parser panic: %v", r)
		}
	}()

	if err := p.prime(); err != nil {
		return nil, err
	}
	rs, err := p.parseRuleset()
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// ParseExpr compiles a single standalone expression — a backward chaining
// goal (§4.5: "a single comparison such as `User.CanVote == true`") — using
// the same lexer/grammar as a rule's `when` clause, with no enclosing
// `rule`/`when`/`then` structure. Trailing input after the expression is a
// syntax error.
func ParseExpr(src string, reg registry.Registry) (expr Expr, err error) {
	p := &parser{lex: newLexer(src), reg: reg}
	defer func() {
		if r := recover(); r != nil {
			expr = nil
			err = rerr.Newf(rerr.CodeInternal, "parser panic: %v", r)
		}
	}()
	if err := p.prime(); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, p.syntaxErrorf("unexpected trailing input %q", p.cur.text)
	}
	return e, nil
}

type parser struct {
	lex  *lexer
	cur  token
	reg  registry.Registry
}

func (p *parser) prime() error {
	tok, err := p.lex.next()
	if err != nil {
		return lexErrToParse(err)
	}
	p.cur = tok
	return nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return lexErrToParse(err)
	}
	p.cur = tok
	return nil
}

func lexErrToParse(err error) error {
	if le, ok := err.(*LexError); ok {
		return rerr.NewParse(rerr.ParseKindLex, le.Line, le.Column, le.Message)
	}
	return rerr.Newf(rerr.CodeInternal, "%v", err)
}

func (p *parser) syntaxErrorf(format string, args ...interface{}) error {
	return rerr.NewParse(rerr.ParseKindSyntax, p.cur.line, p.cur.col, sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.cur.kind != kind {
		return token{}, p.syntaxErrorf("expected %s, got %q", what, p.cur.text)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (p *parser) parseRuleset() (*Ruleset, error) {
	rs := &Ruleset{}
	seen := map[string]bool{}
	order := 0
	for p.cur.kind != tokEOF {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		if seen[rule.Name] {
			return nil, rerr.NewParse(rerr.ParseKindDuplicateRule, rule.Span.Line, rule.Span.Column, "duplicate rule name: "+rule.Name)
		}
		seen[rule.Name] = true
		rule.Order = order
		order++
		rs.Rules = append(rs.Rules, rule)
	}
	if len(rs.Rules) == 0 {
		// `ruleset := rule+` (§4.1): empty or comment-only input is a
		// syntax error, not an empty ruleset.
		return nil, p.syntaxErrorf("expected at least one rule")
	}
	return rs, nil
}

func (p *parser) parseRule() (*Rule, error) {
	span := Span{Line: p.cur.line, Column: p.cur.col}
	if _, err := p.expect(tokRule, "'rule'"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(tokString, "rule name string"); if err != nil {
		return nil, err
	}
	salience := 0
	if p.cur.kind == tokSalience {
		if err := p.advance(); err != nil {
			return nil, err
		}
		intTok, err := p.expect(tokInt, "salience integer")
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(intTok.text)
		if convErr != nil {
			return nil, p.syntaxErrorf("invalid salience integer %q", intTok.text)
		}
		salience = n
	}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokWhen, "'when'"); err != nil {
		return nil, err
	}
	when, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokThen, "'then'"); err != nil {
		return nil, err
	}
	var actions []*Action
	for p.cur.kind != tokRBrace {
		if p.cur.kind == tokEOF {
			return nil, p.syntaxErrorf("unexpected end of input inside rule %q", nameTok.text)
		}
		action, err := p.parseAction()
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if len(actions) == 0 {
		return nil, p.syntaxErrorf("rule %q has no actions", nameTok.text)
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}

	return &Rule{Name: nameTok.text, Salience: salience, When: when, Then: actions, Span: span}, nil
}

func (p *parser) parseAction() (*Action, error) {
	span := Span{Line: p.cur.line, Column: p.cur.col}
	pathTok := p.cur
	if pathTok.kind != tokPath && pathTok.kind != tokIdent {
		return nil, p.syntaxErrorf("expected assignment target path, got %q", pathTok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, pathErr := fact.ParsePath(pathTok.text)
	if pathErr != nil {
		return nil, p.syntaxErrorf("invalid assignment path %q: %v", pathTok.text, pathErr)
	}
	if _, err := p.expect(tokAssign, "'='"); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokSemicolon {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &Action{Path: path, RawPath: pathTok.text, Value: rhs, Span: span}, nil
}

// parseExpr implements `expr := logical` (§4.1).
func (p *parser) parseExpr() (Expr, error) {
	return p.parseLogical()
}

// parseLogical implements `logical := compare (('and'|'or') compare)*`,
// folding left-associatively (§9 open question (b): merged, never
// double-firing disjuncts).
func (p *parser) parseLogical() (Expr, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokAnd || p.cur.kind == tokOr {
		op := OpAnd
		if p.cur.kind == tokOr {
			op = OpOr
		}
		span := Span{Line: p.cur.line, Column: p.cur.col}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: op, Operands: []Expr{left, right}, Span: span}
	}
	return left, nil
}

// parseCompare implements `compare := arith (CMPOP arith)?`.
func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	var op BinaryOp
	switch p.cur.kind {
	case tokEq:
		op = OpEq
	case tokNe:
		op = OpNe
	case tokLt:
		op = OpLt
	case tokLe:
		op = OpLe
	case tokGt:
		op = OpGt
	case tokGe:
		op = OpGe
	default:
		return left, nil
	}
	span := Span{Line: p.cur.line, Column: p.cur.col}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, Left: left, Right: right, Span: span}, nil
}

// parseArith implements `arith := term (('+'|'-') term)*`.
func (p *parser) parseArith() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := OpAdd
		if p.cur.kind == tokMinus {
			op = OpSub
		}
		span := Span{Line: p.cur.line, Column: p.cur.col}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right, Span: span}
	}
	return left, nil
}

// parseTerm implements `term := factor (('*'|'/') factor)*`.
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokStar || p.cur.kind == tokSlash {
		op := OpMul
		if p.cur.kind == tokSlash {
			op = OpDiv
		}
		span := Span{Line: p.cur.line, Column: p.cur.col}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right, Span: span}
	}
	return left, nil
}

// parseFactor implements:
//
//	factor := LITERAL | PATH | IDENT '(' (expr (',' expr)*)? ')' | '(' expr ')' | 'not' factor
func (p *parser) parseFactor() (Expr, error) {
	span := Span{Line: p.cur.line, Column: p.cur.col}
	switch p.cur.kind {
	case tokNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, Operand: operand, Span: span}, nil

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokInt:
		n, err := strconv.ParseInt(p.cur.text, 10, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid integer literal %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: value.NewInt(n), Span: span}, nil

	case tokFloat:
		f, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid float literal %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: value.NewFloat(f), Span: span}, nil

	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: value.NewString(s), Span: span}, nil

	case tokPath:
		raw := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		path, err := fact.ParsePath(raw)
		if err != nil {
			return nil, p.syntaxErrorf("invalid path %q: %v", raw, err)
		}
		return &PathRef{Path: path, Raw: raw, Span: span}, nil

	case tokIdent:
		name := p.cur.text
		if name == "true" || name == "false" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Value: value.NewBool(name == "true"), Span: span}, nil
		}
		if name == "null" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Value: value.NullValue(), Span: span}, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokLParen {
			// A bare identifier with no dotted continuation and no call
			// parens is still a valid single-segment path (e.g. a rule
			// referencing a top-level fact `Flag`).
			path, err := fact.ParsePath(name)
			if err != nil {
				return nil, p.syntaxErrorf("invalid path %q: %v", name, err)
			}
			return &PathRef{Path: path, Raw: name, Span: span}, nil
		}
		return p.parseFnCall(name, span)

	default:
		return nil, p.syntaxErrorf("unexpected token %q", p.cur.text)
	}
}

func (p *parser) parseFnCall(name string, span Span) (Expr, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []Expr
	for p.cur.kind != tokRParen {
		if len(args) > 0 {
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	if p.reg != nil {
		spec, ok := p.reg.Lookup(name)
		if !ok {
			return nil, rerr.NewParse(rerr.ParseKindUnknownFunction, span.Line, span.Column, "unknown function: "+name)
		}
		if spec.Arity >= 0 && spec.Arity != len(args) {
			return nil, rerr.NewParse(rerr.ParseKindSyntax, span.Line, span.Column,
				sprintf("function %q expects %d argument(s), got %d", name, spec.Arity, len(args)))
		}
		for i, k := range spec.Kinds {
			if i >= len(args) {
				break
			}
			if k == registry.ArgPath {
				if _, ok := args[i].(*PathRef); !ok {
					return nil, rerr.NewParse(rerr.ParseKindSyntax, span.Line, span.Column,
						sprintf("function %q argument %d must be a fact path", name, i+1))
				}
			}
		}
	}

	return &FnCall{Name: name, Args: args, Span: span}, nil
}
