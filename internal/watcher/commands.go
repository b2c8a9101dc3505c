package watcher

import (
	"context"
	"fmt"
	"strings"

	"risk_desk/internal/tools"
)

var watcherCommands = []tools.CommandDoc{
	{Name: "/ping", Description: "Connectivity check", Example: "/ping"},
	{Name: "/status", Description: "Latest systemic risk dashboard", Example: "/status"},
	{Name: "/check", Description: "Poll now and report the result", Example: "/check"},
	{Name: "/tools", Description: "List the analysis tools", Example: "/tools"},
}

// HandleCommand processes inbound Telegram commands. Unknown commands are
// passed to the tool registry against the watcher's session.
func (w *Watcher) HandleCommand(ctx context.Context, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return ""
	}

	switch parts[0] {
	case "/ping":
		return "Pong 🏓"
	case "/status":
		return w.getStatus()
	case "/check":
		return formatAlert(w.Poll(ctx))
	case "/help":
		return w.getHelp()
	}

	if w.registry == nil {
		return "Unknown command. Try /status, /check or /help."
	}
	if parts[0] == "/tools" {
		return codeBlock(w.registry.HandleCommand(ctx, w.session, "/help"))
	}
	return codeBlock(w.registry.HandleCommand(ctx, w.session, cmd))
}

// codeBlock wraps tool output in a Markdown pre block so underscores in JSON
// keys and tool names are not read as italics.
func codeBlock(text string) string {
	if text == "" {
		return ""
	}
	return "```\n" + strings.ReplaceAll(text, "```", "'''") + "\n```"
}

func (w *Watcher) getHelp() string {
	var sb strings.Builder
	sb.WriteString("*Commands*\n")
	for _, c := range watcherCommands {
		sb.WriteString(fmt.Sprintf("%s - %s\n", c.Name, c.Description))
	}
	if w.registry != nil {
		sb.WriteString("Any analysis tool also works, e.g. `/stress_test scenario=recession`\n")
	}
	return sb.String()
}
