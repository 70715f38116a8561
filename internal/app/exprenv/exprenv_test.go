package exprenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_WithArgs_Arithmetic(t *testing.T) {
	env := New().WithArgs(map[string]interface{}{"price": 100.0, "qty": 3.0})

	program, err := Compile("price * qty", env)
	require.NoError(t, err)

	result, err := Run(program, env)
	require.NoError(t, err)
	assert.Equal(t, 300.0, result)
}

func TestEnvironment_MathModule(t *testing.T) {
	env := New().WithArgs(map[string]interface{}{"x": 9.0})

	program, err := Compile("math.Sqrt(x)", env)
	require.NoError(t, err)

	result, err := Run(program, env)
	require.NoError(t, err)
	assert.Equal(t, 3.0, result)
}

func TestEnvironment_JSONModule(t *testing.T) {
	env := New().WithArgs(map[string]interface{}{"v": map[string]interface{}{"a": 1.0}})

	program, err := Compile(`json.Marshal(v)`, env)
	require.NoError(t, err)

	result, err := Run(program, env)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, result)
}

func TestEnvironment_JQBuiltin(t *testing.T) {
	env := New().WithArgs(map[string]interface{}{"doc": `{"items":[1,2,3]}`})

	program, err := Compile(`jq(".items | length", doc)`, env)
	require.NoError(t, err)

	result, err := Run(program, env)
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestEnvironment_ReModule(t *testing.T) {
	env := New().WithArgs(map[string]interface{}{"s": "order-42"})

	program, err := Compile(`re.Match("^order-[0-9]+$", s)`, env)
	require.NoError(t, err)

	result, err := Run(program, env)
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestCompile_SyntaxError(t *testing.T) {
	env := New()
	_, err := Compile("this is not )( valid", env)
	assert.Error(t, err)
}

func TestNew_ExtraAllowedImports(t *testing.T) {
	env := New("statistics")
	_, ok := env["statistics"]
	assert.True(t, ok)
}

func TestWithArgs_DoesNotMutateBase(t *testing.T) {
	base := New()
	_ = base.WithArgs(map[string]interface{}{"x": 1})

	if _, ok := base["x"]; ok {
		t.Fatal("WithArgs mutated the base environment")
	}
}
