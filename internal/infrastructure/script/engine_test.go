package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Evaluate(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	require.NoError(t, e.Set("tutorial_done", true))
	require.NoError(t, e.Set("level", 3))
	require.NoError(t, e.Set("region", "eu"))

	tests := []struct {
		expr     string
		expected bool
	}{
		{"flags.tutorial_done", true},
		{"flags.level >= 3", true},
		{"flags.level > 3", false},
		{"flags.region == 'eu' and flags.tutorial_done", true},
		{"flags.missing", false},
		{"not flags.missing", true},
		{"0", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := e.Compile(tt.expr)
			require.NoError(t, err)
			ok, err := c.Evaluate()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.Equal(t, tt.expr, c.String())
		})
	}
}

func TestCondition_SeesLaterFlagChanges(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	c, err := e.Compile("flags.unlocked == true")
	require.NoError(t, err)

	ok, err := c.Evaluate()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.Set("unlocked", true))
	ok, err = c.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCondition_RuntimeErrorIsReported(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	c, err := e.Compile("flags.missing.field > 1")
	require.NoError(t, err)

	ok, err := c.Evaluate()
	assert.Error(t, err)
	assert.False(t, ok)

	// the VM stays usable
	c, err = e.Compile("true")
	require.NoError(t, err)
	ok, err = c.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_CompileError(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	_, err := e.Compile("flags.level >=")
	assert.Error(t, err)
}

func TestEngine_ExecHelpers(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	require.NoError(t, e.Exec(`function has_coins(n) return (flags.coins or 0) >= n end`))
	require.NoError(t, e.Set("coins", 50))

	c, err := e.Compile("has_coins(20)")
	require.NoError(t, err)
	ok, err := c.Evaluate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_Flags(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	require.NoError(t, e.Set("a", true))
	require.NoError(t, e.Set("b", 2.5))
	require.NoError(t, e.Set("c", "x"))

	assert.Equal(t, true, e.Flag("a"))
	assert.Equal(t, 2.5, e.Flag("b"))
	assert.Equal(t, "x", e.Flag("c"))
	assert.Nil(t, e.Flag("missing"))

	assert.Error(t, e.Set("bad", []int{1}))
}
