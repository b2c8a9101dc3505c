// Package tools exposes the risk desk operations as named tools with declared
// parameters. Every call returns a Result; handler errors never escape it.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"risk_desk/internal/session"
)

// Parameter types understood by the registry and the MCP adapter.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Param declares one tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Items       string `json:"items,omitempty"` // element type of array params; string when empty
}

// Handler runs a tool against a session. The registry holds the session lock.
type Handler func(ctx context.Context, sess *session.Session, args Args) (any, error)

// Tool is a named operation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Handler     Handler `json:"-"`
}

// Result is the outcome of a call: either data or an error message.
type Result struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Success wraps data in a successful Result.
func Success(data any) Result {
	return Result{OK: true, Data: data}
}

// Failure wraps a message in an error Result.
func Failure(format string, args ...any) Result {
	return Result{OK: false, Error: fmt.Sprintf(format, args...)}
}

// JSON renders the result with two-space indentation.
func (r Result) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
	}
	return string(data)
}

// Registry maps tool names to tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *Metrics
}

// NewRegistry returns an empty registry. metrics may be nil.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		metrics: metrics,
	}
}

// Register adds a tool. It panics on an empty or duplicate name or a nil
// handler, since both are programming errors caught at startup.
func (r *Registry) Register(t Tool) {
	if t.Name == "" || t.Handler == nil {
		panic("tools: tool needs a name and a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate tool %q", t.Name))
	}
	r.tools[t.Name] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates args against the tool's parameters, runs it with the
// session locked, and converts any error into a failed Result.
func (r *Registry) Call(ctx context.Context, sess *session.Session, name string, args Args) (res Result) {
	start := time.Now()
	defer func() {
		r.observe(name, res, time.Since(start))
	}()

	t, ok := r.Get(name)
	if !ok {
		return Failure("unknown tool %s", name)
	}
	if args == nil {
		args = Args{}
	}
	if err := validate(t, args); err != nil {
		return Failure("%s", err.Error())
	}

	sess.Lock()
	defer sess.Unlock()

	defer func() {
		if p := recover(); p != nil {
			res = Failure("tool %s failed: %v", name, p)
		}
	}()

	data, err := t.Handler(ctx, sess, args)
	if err != nil {
		return Failure("%s", err.Error())
	}
	return Success(data)
}

func (r *Registry) observe(name string, res Result, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	if _, known := r.Get(name); !known {
		name = "unknown"
	}
	outcome := "ok"
	if !res.OK {
		outcome = "error"
	}
	r.metrics.Calls.WithLabelValues(name, outcome).Inc()
	r.metrics.Duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func validate(t Tool, args Args) error {
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return fmt.Errorf("missing required argument %s", p.Name)
			}
			continue
		}
		if err := check(p, v); err != nil {
			return err
		}
	}
	return nil
}
