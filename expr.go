package etiquette

import (
	"strings"
)

// exprTokenKind classifies one token of a boolean tag expression.
type exprTokenKind int

const (
	tokenAtom exprTokenKind = iota
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type exprToken struct {
	kind exprTokenKind
	text string
}

// tokenizeExpression splits a boolean expression into atoms, operators, and
// parens. Operators are case-insensitive AND/OR/NOT, plus the symbolic
// forms &, |, -. Atoms are any other whitespace-delimited run of
// characters, including parens glued to them (e.g. "(cat" splits into
// "(" and "cat"); a '-' at the start of a word is NOT, so "-cat" splits
// into NOT and "cat". A double-quoted span is always one atom, verbatim,
// regardless of whitespace, parens, or operator keywords it contains (so
// `"survival guide" AND pdf` matches a two-word phrase as a single atom),
// mirroring the shlex-style quoting the original tokenizer relied on.
func tokenizeExpression(expr string) []exprToken {
	var tokens []exprToken
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tokens = append(tokens, classifyWord(current.String()))
		current.Reset()
	}

	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '"':
			flush()
			var quoted strings.Builder
			i++
			for i < len(runes) && runes[i] != '"' {
				quoted.WriteRune(runes[i])
				i++
			}
			tokens = append(tokens, exprToken{kind: tokenAtom, text: quoted.String()})
		case ' ', '\t', '\n':
			flush()
		case '(':
			flush()
			tokens = append(tokens, exprToken{kind: tokenLParen, text: "("})
		case ')':
			flush()
			tokens = append(tokens, exprToken{kind: tokenRParen, text: ")"})
		case '-':
			if current.Len() == 0 {
				tokens = append(tokens, exprToken{kind: tokenNot, text: "-"})
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func classifyWord(word string) exprToken {
	switch strings.ToUpper(word) {
	case "AND", "&":
		return exprToken{kind: tokenAnd, text: word}
	case "OR", "|":
		return exprToken{kind: tokenOr, text: word}
	case "NOT", "-":
		return exprToken{kind: tokenNot, text: word}
	default:
		return exprToken{kind: tokenAtom, text: word}
	}
}

// exprNode is one node of a parsed expression tree: either a leaf atom or
// an AND/OR/NOT operator over child nodes.
type exprNode struct {
	op       exprTokenKind // tokenAtom, tokenAnd, tokenOr, or tokenNot
	atom     string
	children []*exprNode
}

func precedence(kind exprTokenKind) int {
	switch kind {
	case tokenNot:
		return 3
	case tokenAnd:
		return 2
	case tokenOr:
		return 1
	default:
		return 0
	}
}

// ParseExpression builds an expression tree from a boolean tag/filename
// expression using the shunting-yard algorithm, giving NOT the highest
// precedence, then AND, then OR, with explicit parens overriding.
func ParseExpression(expr string) (*exprNode, error) {
	tokens := tokenizeExpression(expr)
	if len(tokens) == 0 {
		return nil, wrapError("NoYields", nil, "empty expression")
	}

	var output []*exprNode
	var ops []exprToken

	popOp := func() error {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.kind == tokenNot {
			if len(output) < 1 {
				return wrapError("NoYields", nil, "malformed expression: NOT missing operand")
			}
			operand := output[len(output)-1]
			output = output[:len(output)-1]
			output = append(output, &exprNode{op: tokenNot, children: []*exprNode{operand}})
			return nil
		}
		if len(output) < 2 {
			return wrapError("NoYields", nil, "malformed expression: missing operand")
		}
		right := output[len(output)-1]
		left := output[len(output)-2]
		output = output[:len(output)-2]
		output = append(output, &exprNode{op: top.kind, children: []*exprNode{left, right}})
		return nil
	}

	for _, tok := range tokens {
		switch tok.kind {
		case tokenAtom:
			output = append(output, &exprNode{op: tokenAtom, atom: tok.text})
		case tokenNot:
			ops = append(ops, tok)
		case tokenAnd, tokenOr:
			for len(ops) > 0 && ops[len(ops)-1].kind != tokenLParen && precedence(ops[len(ops)-1].kind) >= precedence(tok.kind) {
				if err := popOp(); err != nil {
					return nil, err
				}
			}
			ops = append(ops, tok)
		case tokenLParen:
			ops = append(ops, tok)
		case tokenRParen:
			found := false
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				if top.kind == tokenLParen {
					ops = ops[:len(ops)-1]
					found = true
					break
				}
				if err := popOp(); err != nil {
					return nil, err
				}
			}
			if !found {
				return nil, wrapError("NoYields", nil, "malformed expression: unbalanced parens")
			}
		}
	}

	for len(ops) > 0 {
		if ops[len(ops)-1].kind == tokenLParen {
			return nil, wrapError("NoYields", nil, "malformed expression: unbalanced parens")
		}
		if err := popOp(); err != nil {
			return nil, err
		}
	}

	if len(output) != 1 {
		return nil, wrapError("NoYields", nil, "malformed expression: %q", expr)
	}
	return output[0], nil
}

// Evaluate walks the tree, calling atomFn for each leaf and short-circuiting
// AND/OR without evaluating every branch once the result is determined.
func (n *exprNode) Evaluate(atomFn func(atom string) bool) bool {
	switch n.op {
	case tokenAtom:
		return atomFn(n.atom)
	case tokenNot:
		return !n.children[0].Evaluate(atomFn)
	case tokenAnd:
		for _, child := range n.children {
			if !child.Evaluate(atomFn) {
				return false
			}
		}
		return true
	case tokenOr:
		for _, child := range n.children {
			if child.Evaluate(atomFn) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Atoms returns every distinct atom referenced in the tree, in first-seen
// order, so callers can resolve tag names to IDs once before evaluation.
func (n *exprNode) Atoms() []string {
	seen := make(map[string]bool)
	var atoms []string
	var walk func(*exprNode)
	walk = func(node *exprNode) {
		if node.op == tokenAtom {
			if !seen[node.atom] {
				seen[node.atom] = true
				atoms = append(atoms, node.atom)
			}
			return
		}
		for _, c := range node.children {
			walk(c)
		}
	}
	walk(n)
	return atoms
}
