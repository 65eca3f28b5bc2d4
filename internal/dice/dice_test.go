package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollSimpleFormula(t *testing.T) {
	result, err := Roll("2d6+3")
	require.NoError(t, err)

	require.Len(t, result.Rolls, 2)
	sum := 0
	for _, r := range result.Rolls {
		assert.GreaterOrEqual(t, r, 1)
		assert.LessOrEqual(t, r, 6)
		sum += r
	}
	assert.Equal(t, sum+3, result.Total)
	assert.Equal(t, "2d6+3", result.Formula)
	assert.Equal(t, "d6", result.DiceType)
}

func TestRollDefaultsToOneDie(t *testing.T) {
	result, err := Roll("d20")
	require.NoError(t, err)
	require.Len(t, result.Rolls, 1)
	assert.GreaterOrEqual(t, result.Rolls[0], 1)
	assert.LessOrEqual(t, result.Rolls[0], 20)
	assert.Equal(t, result.Rolls[0], result.Total)
}

func TestRollNegativeModifier(t *testing.T) {
	result, err := Roll("4d10-2")
	require.NoError(t, err)
	require.Len(t, result.Rolls, 4)
	sum := 0
	for _, r := range result.Rolls {
		sum += r
	}
	assert.Equal(t, sum-2, result.Total)
}

func TestRollUppercaseAccepted(t *testing.T) {
	_, err := Roll("2D6")
	assert.NoError(t, err)
}

func TestRollRejectsMalformedFormula(t *testing.T) {
	for _, formula := range []string{"bad", "", "2x6", "d", "6+3", "2d6+", "-d6"} {
		_, err := Roll(formula)
		assert.Error(t, err, "formula %q should not parse", formula)
	}
}

func TestRollRejectsUnknownDiceType(t *testing.T) {
	_, err := Roll("2d7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dice type")
}

func TestRollRejectsExcessiveDiceCount(t *testing.T) {
	_, err := Roll("101d6")
	assert.Error(t, err)
}

func TestCheckCritical(t *testing.T) {
	tests := []struct {
		name  string
		rolls []int
		sides int
		want  ResultType
	}{
		{"single natural 20", []int{20}, 20, ResultCriticalSuccess},
		{"all 20s", []int{20, 20}, 20, ResultCriticalSuccess},
		{"single natural 1", []int{1}, 20, ResultCriticalFailure},
		{"mixed d20", []int{20, 1}, 20, ResultNormal},
		{"ordinary d20", []int{13}, 20, ResultNormal},
		{"natural 100", []int{100}, 100, ResultCriticalFailure},
		{"ordinary d100", []int{57}, 100, ResultNormal},
		{"d6 never crits", []int{6, 6}, 6, ResultNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := checkCritical(tt.rolls, tt.sides)
			assert.Equal(t, tt.want, got)
		})
	}
}
