package stat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_Variables(t *testing.T) {
	tests := []struct {
		formula string
		want    []string
	}{
		{formula: "Strength.Added * 0.5 + Level", want: []string{"Strength.Added", "Level"}},
		{formula: "Src@Power.Added * 0.5", want: []string{"Src@Power.Added"}},
		{formula: "Damage.Added.5 * 2 + Damage.Added.5", want: []string{"Damage.Added.5"}},
		{formula: "max(a, b) + 1.5e+2", want: []string{"a", "b"}},
		{formula: "10 * 2", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			e, err := NewExpression(tt.formula)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, e.Variables())
				return
			}
			assert.Equal(t, tt.want, e.Variables())
		})
	}
}

func TestExpression_Evaluate(t *testing.T) {
	tests := []struct {
		formula string
		vars    Variables
		want    float64
	}{
		{formula: "Strength.Added * 0.5 + Level", vars: Variables{"Strength.Added": 10, "Level": 3}, want: 8},
		{formula: "Missing + 2", vars: Variables{}, want: 2},
		{formula: "Src@Power.Added * 0.5", vars: Variables{"Src@Power.Added": 20}, want: 10},
		{formula: "max(a, b)", vars: Variables{"a": 4, "b": 9}, want: 9},
		{formula: "1.5e+2 + x", vars: Variables{"x": 1}, want: 151},
		{formula: "7", vars: nil, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			e := MustExpression(tt.formula)
			assert.InDelta(t, tt.want, e.Evaluate(tt.vars), 1e-9)
		})
	}
}

func TestExpression_CompileErrors(t *testing.T) {
	for _, formula := range []string{"", "   ", "1 +", "(a * 2"} {
		_, err := NewExpression(formula)
		assert.ErrorIs(t, err, ErrExpression, "formula %q", formula)
	}
}

func TestExpression_Equal(t *testing.T) {
	a := MustExpression("x * 2")
	b := MustExpression(" x * 2 ")
	c := MustExpression("x * 3")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, a.References("x"))
	assert.False(t, a.References("y"))
}

func TestParseModifier(t *testing.T) {
	m, err := ParseModifier("12.5")
	require.NoError(t, err)
	assert.False(t, m.IsExpression())
	assert.Equal(t, 12.5, m.Value())

	m, err = ParseModifier("Level * 2")
	require.NoError(t, err)
	assert.True(t, m.IsExpression())
	assert.Equal(t, "Level * 2", m.String())

	_, err = ParseModifier("Level *")
	assert.ErrorIs(t, err, ErrExpression)
}

func TestRequirement(t *testing.T) {
	r, err := NewRequirement("Strength >= 10 && Level > 3")
	require.NoError(t, err)

	assert.True(t, r.Met(Variables{"Strength": 12, "Level": 5}))
	assert.False(t, r.Met(Variables{"Strength": 12}))

	_, err = NewRequirement("Strength + 1")
	assert.ErrorIs(t, err, ErrExpression)
}
