package etiquette

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalWith(t *testing.T, expr string, truthy map[string]bool) bool {
	t.Helper()
	tree, err := ParseExpression(expr)
	require.NoError(t, err)
	return tree.Evaluate(func(atom string) bool { return truthy[atom] })
}

func TestExpressionAndOr(t *testing.T) {
	assert.True(t, evalWith(t, "cat AND dog", map[string]bool{"cat": true, "dog": true}))
	assert.False(t, evalWith(t, "cat AND dog", map[string]bool{"cat": true, "dog": false}))
	assert.True(t, evalWith(t, "cat OR dog", map[string]bool{"cat": false, "dog": true}))
}

func TestExpressionNotPrecedence(t *testing.T) {
	assert.False(t, evalWith(t, "NOT cat AND dog", map[string]bool{"cat": true, "dog": true}))
	assert.True(t, evalWith(t, "NOT cat OR dog", map[string]bool{"cat": false, "dog": false}))
}

func TestExpressionParens(t *testing.T) {
	assert.True(t, evalWith(t, "(cat OR dog) AND NOT fish", map[string]bool{"cat": true, "dog": false, "fish": false}))
	assert.False(t, evalWith(t, "(cat OR dog) AND NOT fish", map[string]bool{"cat": true, "dog": false, "fish": true}))
}

func TestExpressionSymbolicOperators(t *testing.T) {
	assert.True(t, evalWith(t, "cat & dog", map[string]bool{"cat": true, "dog": true}))
	assert.True(t, evalWith(t, "cat | dog", map[string]bool{"cat": false, "dog": true}))
	assert.True(t, evalWith(t, "-cat", map[string]bool{"cat": false}))
}

func TestExpressionShortCircuit(t *testing.T) {
	called := false
	tree, err := ParseExpression("cat AND dog")
	require.NoError(t, err)
	result := tree.Evaluate(func(atom string) bool {
		if atom == "dog" {
			called = true
		}
		return false
	})
	assert.False(t, result)
	assert.False(t, called, "AND must not evaluate the second operand once the first is false")
}

func TestExpressionUnbalancedParensError(t *testing.T) {
	_, err := ParseExpression("(cat AND dog")
	require.Error(t, err)
}

func TestExpressionQuotedAtomIsOneToken(t *testing.T) {
	tree, err := ParseExpression(`"survival guide" AND pdf`)
	require.NoError(t, err)
	assert.Equal(t, []string{"survival guide", "pdf"}, tree.Atoms())

	matcher := func(name string) func(atom string) bool {
		return func(atom string) bool {
			return strings.Contains(strings.ToLower(name), strings.ToLower(atom))
		}
	}
	assert.True(t, tree.Evaluate(matcher("Cooking Survival Guide.pdf")))
	assert.False(t, tree.Evaluate(matcher("Survival.pdf")))
}

func TestExpressionQuotedAtomMayContainOperatorWords(t *testing.T) {
	tree, err := ParseExpression(`"cat and dog"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat and dog"}, tree.Atoms())
}

func TestExpressionAtoms(t *testing.T) {
	tree, err := ParseExpression("cat AND (dog OR cat)")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, tree.Atoms())
}
