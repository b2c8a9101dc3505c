package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"risk_desk/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		Params: []Param{
			{Name: "text", Type: TypeString, Required: true},
			{Name: "times", Type: TypeInteger},
		},
		Handler: func(_ context.Context, _ *session.Session, args Args) (any, error) {
			return map[string]any{"text": args.String("text", ""), "times": args.Int("times", 1)}, nil
		},
	}
}

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(echoTool("zeta"))
	r.Register(echoTool("alpha"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)

	assert.Panics(t, func() { r.Register(echoTool("alpha")) })
	assert.Panics(t, func() { r.Register(Tool{Name: "no_handler"}) })
}

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(echoTool("echo"))
	r.Register(Tool{
		Name: "broken",
		Handler: func(context.Context, *session.Session, Args) (any, error) {
			return nil, errors.New("boom")
		},
	})
	r.Register(Tool{
		Name: "panics",
		Handler: func(context.Context, *session.Session, Args) (any, error) {
			panic("bad state")
		},
	})
	sess := session.New(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		tool    string
		args    Args
		wantOK  bool
		wantErr string
	}{
		{"success", "echo", Args{"text": "hi", "times": 2.0}, true, ""},
		{"unknown tool", "nope", nil, false, "unknown tool nope"},
		{"missing required", "echo", Args{}, false, "missing required argument text"},
		{"wrong type", "echo", Args{"text": "hi", "times": "many"}, false, "argument times must be a number"},
		{"handler error", "broken", nil, false, "boom"},
		{"handler panic", "panics", nil, false, "tool panics failed: bad state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Call(ctx, sess, tt.tool, tt.args)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantErr, res.Error)
		})
	}
}

func TestRegistry_CallReleasesSessionLock(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Tool{
		Name: "panics",
		Handler: func(context.Context, *session.Session, Args) (any, error) {
			panic("x")
		},
	})
	sess := session.New(nil)

	r.Call(context.Background(), sess, "panics", nil)

	// A second call would deadlock if the lock leaked.
	res := r.Call(context.Background(), sess, "panics", nil)
	assert.False(t, res.OK)
}

func TestRegistry_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewRegistry(m)
	r.Register(echoTool("echo"))
	sess := session.New(nil)

	r.Call(context.Background(), sess, "echo", Args{"text": "a"})
	r.Call(context.Background(), sess, "echo", Args{})
	r.Call(context.Background(), sess, "missing", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("echo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("echo", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("unknown", "error")))
}

func TestResult_JSON(t *testing.T) {
	var ok map[string]any
	require.NoError(t, json.Unmarshal([]byte(Success(map[string]int{"n": 1}).JSON()), &ok))
	assert.Equal(t, true, ok["ok"])
	assert.NotContains(t, ok, "error")

	var failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(Failure("No data for %s", "ZZZ").JSON()), &failed))
	assert.Equal(t, false, failed["ok"])
	assert.Equal(t, "No data for ZZZ", failed["error"])
	assert.NotContains(t, failed, "data")
}

func TestArgs_Accessors(t *testing.T) {
	args := Args{
		"s":     "text",
		"f":     1.5,
		"i":     "7",
		"b":     "true",
		"list":  []any{"a", "b"},
		"csv":   "x, y,,z",
		"empty": "",
	}

	assert.Equal(t, "text", args.String("s", ""))
	assert.Equal(t, "dflt", args.String("missing", "dflt"))
	assert.Equal(t, 1.5, args.Float("f", 0))
	assert.Equal(t, 7, args.Int("i", 0))
	assert.Equal(t, 1, args.Int("f", 0))
	assert.True(t, args.Bool("b", false))
	assert.Equal(t, []string{"a", "b"}, args.StringSlice("list"))
	assert.Equal(t, []string{"x", "y", "z"}, args.StringSlice("csv"))
	assert.Nil(t, args.StringSlice("empty"))
	assert.False(t, args.Has("missing"))
}
