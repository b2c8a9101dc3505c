package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"risk_desk/internal/session"
)

// CommandDoc describes one slash command for the help listing.
type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

// HandleCommand runs a slash command such as "/calculate_var confidence=0.99"
// and returns the result as indented JSON. Arguments may also be given as a
// single JSON object: /add_position {"symbol":"AAPL","shares":10,...}.
func (r *Registry) HandleCommand(ctx context.Context, sess *session.Session, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if !strings.HasPrefix(line, "/") {
		return "Commands start with '/'. Try /help."
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	switch name {
	case "help":
		return r.help()
	case "reset":
		sess.Lock()
		sess.Reset(nil)
		sess.Unlock()
		return "Session cleared."
	}

	t, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown command /%s. Try /help.", name)
	}

	args, err := parseCommandArgs(t, strings.TrimSpace(rest))
	if err != nil {
		return Failure("%s", err.Error()).JSON()
	}
	return r.Call(ctx, sess, name, args).JSON()
}

// Docs returns help entries for every registered tool, sorted by name.
func (r *Registry) Docs() []CommandDoc {
	list := r.List()
	docs := make([]CommandDoc, 0, len(list))
	for _, t := range list {
		docs = append(docs, CommandDoc{
			Name:        "/" + t.Name,
			Description: t.Description,
			Example:     example(t),
		})
	}
	return docs
}

func (r *Registry) help() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, d := range r.Docs() {
		sb.WriteString(fmt.Sprintf("%s - %s\n    e.g. %s\n", d.Name, d.Description, d.Example))
	}
	sb.WriteString("/reset - Start a fresh portfolio and context\n")
	sb.WriteString("/help - Show this list\n")
	return sb.String()
}

func example(t Tool) string {
	parts := []string{"/" + t.Name}
	for _, p := range t.Params {
		if !p.Required {
			continue
		}
		switch p.Type {
		case TypeNumber:
			parts = append(parts, p.Name+"=1.5")
		case TypeInteger:
			parts = append(parts, p.Name+"=10")
		case TypeBoolean:
			parts = append(parts, p.Name+"=true")
		case TypeArray:
			parts = append(parts, p.Name+"=a,b")
		default:
			parts = append(parts, p.Name+"=AAPL")
		}
	}
	return strings.Join(parts, " ")
}

// parseCommandArgs turns key=value pairs into Args, converting each value to
// the type its parameter declares.
func parseCommandArgs(t Tool, rest string) (Args, error) {
	args := Args{}
	if rest == "" {
		return args, nil
	}
	if strings.HasPrefix(rest, "{") {
		dec := json.NewDecoder(strings.NewReader(rest))
		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("invalid JSON arguments: %w", err)
		}
		return args, nil
	}

	types := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		types[p.Name] = p.Type
	}

	for _, field := range strings.Fields(rest) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		switch types[key] {
		case TypeNumber, TypeInteger:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %s must be a number", key)
			}
			args[key] = f
		case TypeBoolean:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("argument %s must be a boolean", key)
			}
			args[key] = b
		case TypeArray:
			items := make([]any, 0)
			raw := Args{key: value}
			for _, s := range raw.StringSlice(key) {
				items = append(items, s)
			}
			args[key] = items
		default:
			args[key] = value
		}
	}
	return args, nil
}
