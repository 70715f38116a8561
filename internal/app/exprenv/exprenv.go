// Package exprenv builds the restricted execution environment that every
// function-node body compiles and runs against. It stands in for the
// worker process's allow-listed `import` step: a fixed set of namespaces
// (math, json, time, random, itertools/functools/collections analogues,
// re, jq) plus whatever extra imports a deployment's config opts into.
package exprenv

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/itchyny/gojq"
)

// Environment is the variable scope a function node's body compiles and
// runs against: the fixed namespaces below, plus the node's resolved
// input arguments merged in per call by WithArgs.
type Environment map[string]interface{}

// defaultAllowed lists the namespace keys New always registers,
// mirroring spec's worker-process default allow-list (minus numpy,
// scipy and networkx, which have no Go standard-library analogue and are
// instead represented by math's extended functions and the sandbox
// runtime's own use of lvlath for graph ordering).
var defaultAllowed = []string{"math", "json", "time", "random", "itertools", "functools", "collections", "re", "jq"}

// New builds the base environment, registering the fixed namespace set
// plus any extraAllowedImports a deployment's SandboxConfig names. Unknown
// names in extraAllowedImports are accepted but resolve to nothing; they
// exist for forward compatibility with namespaces this package doesn't
// yet implement.
func New(extraAllowedImports ...string) Environment {
	env := Environment{
		"math":       mathModule(),
		"json":       jsonModule(),
		"time":       timeModule(),
		"random":     randomModule(),
		"itertools":  itertoolsModule(),
		"functools":  functoolsModule(),
		"collections": collectionsModule(),
		"re":         reModule(),
		"jq":         jqFunction,
	}

	for _, name := range extraAllowedImports {
		if _, ok := env[name]; !ok {
			env[name] = map[string]interface{}{}
		}
	}

	return env
}

// WithArgs returns a copy of the environment with the given resolved
// node arguments merged in as top-level variables, the scope a function
// node's body actually executes against.
func (e Environment) WithArgs(args map[string]interface{}) Environment {
	merged := make(Environment, len(e)+len(args))
	for k, v := range e {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}
	return merged
}

// Compile parses and type-checks code against env, matching the
// compile-time failure contract of a function node: a parse error here
// becomes a node-level error, never a whole-compilation error.
func Compile(code string, env Environment) (*vm.Program, error) {
	return expr.Compile(code, expr.Env(map[string]interface{}(env)))
}

// Run executes a compiled program against env.
func Run(program *vm.Program, env Environment) (interface{}, error) {
	return expr.Run(program, map[string]interface{}(env))
}

// CheckSyntax parses code without type-checking it against a concrete
// environment. The code generator calls this at compile time, before a
// node's resolved argument types are known; a failure here becomes the
// node-level parse error spec's §4.4 describes, never a whole-compilation
// failure.
func CheckSyntax(code string) error {
	_, err := expr.Compile(code, expr.AllowUndefinedVariables())
	return err
}

func mathModule() map[string]interface{} {
	return map[string]interface{}{
		"Pi":    math.Pi,
		"E":     math.E,
		"Sqrt":  math.Sqrt,
		"Pow":   math.Pow,
		"Abs":   math.Abs,
		"Floor": math.Floor,
		"Ceil":  math.Ceil,
		"Round": math.Round,
		"Min":   math.Min,
		"Max":   math.Max,
		"Log":   math.Log,
		"Log2":  math.Log2,
		"Log10": math.Log10,
		"Exp":   math.Exp,
		"Sin":   math.Sin,
		"Cos":   math.Cos,
		"Tan":   math.Tan,
		"Mod":   math.Mod,
		"Inf":   math.Inf,
		"IsNaN": math.IsNaN,
	}
}

func jsonModule() map[string]interface{} {
	return map[string]interface{}{
		"Marshal": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		"Unmarshal": func(s string) (interface{}, error) {
			var v interface{}
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func timeModule() map[string]interface{} {
	return map[string]interface{}{
		"Now":      func() int64 { return time.Now().Unix() },
		"NowMilli": func() int64 { return time.Now().UnixMilli() },
		"Format": func(unixSeconds int64, layout string) string {
			return time.Unix(unixSeconds, 0).UTC().Format(layout)
		},
	}
}

func randomModule() map[string]interface{} {
	return map[string]interface{}{
		"Float":   rand.Float64,
		"Int":     func(n int) int { return rand.Intn(n) },
		"Choice":  func(options []interface{}) interface{} { return options[rand.Intn(len(options))] },
		"Shuffle": shuffle,
	}
}

func shuffle(items []interface{}) []interface{} {
	out := make([]interface{}, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// itertoolsModule provides the handful of Python itertools idioms most
// function bodies actually reach for; expr's own builtin pipe functions
// (map/filter/reduce/all/any) cover the rest.
func itertoolsModule() map[string]interface{} {
	return map[string]interface{}{
		"Chain": func(lists ...[]interface{}) []interface{} {
			var out []interface{}
			for _, l := range lists {
				out = append(out, l...)
			}
			return out
		},
		"Zip": func(a, b []interface{}) [][2]interface{} {
			n := len(a)
			if len(b) < n {
				n = len(b)
			}
			out := make([][2]interface{}, n)
			for i := 0; i < n; i++ {
				out[i] = [2]interface{}{a[i], b[i]}
			}
			return out
		},
	}
}

func functoolsModule() map[string]interface{} {
	return map[string]interface{}{
		"Reduce": func(fn func(interface{}, interface{}) interface{}, items []interface{}, initial interface{}) interface{} {
			acc := initial
			for _, item := range items {
				acc = fn(acc, item)
			}
			return acc
		},
	}
}

func collectionsModule() map[string]interface{} {
	return map[string]interface{}{
		"Counter": func(items []interface{}) map[string]int {
			counts := make(map[string]int)
			for _, item := range items {
				counts[fmt.Sprintf("%v", item)]++
			}
			return counts
		},
	}
}

func reModule() map[string]interface{} {
	return map[string]interface{}{
		"Match": func(pattern, s string) (bool, error) {
			return regexp.MatchString(pattern, s)
		},
		"FindAll": func(pattern, s string) ([]string, error) {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, err
			}
			return re.FindAllString(s, -1), nil
		},
		"Replace": func(pattern, repl, s string) (string, error) {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return "", err
			}
			return re.ReplaceAllString(s, repl), nil
		},
	}
}

// jqFunction implements the jq(filter, value) sandbox builtin, grounded
// on the teacher's "jq" transform type.
func jqFunction(filter string, value interface{}) (interface{}, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter: %w", err)
	}

	input := coerceJQInput(value)
	iter := code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq filter produced no output")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq filter execution error: %w", err)
	}
	return v, nil
}

func coerceJQInput(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return v
		}
		return parsed
	case []byte:
		var parsed interface{}
		if err := json.Unmarshal(v, &parsed); err != nil {
			return string(v)
		}
		return parsed
	default:
		return v
	}
}
