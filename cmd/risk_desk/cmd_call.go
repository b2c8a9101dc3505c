package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"risk_desk/internal/session"
	"risk_desk/internal/tools"

	"github.com/spf13/cobra"
)

func newCallCmd(a *app) *cobra.Command {
	var importFirst bool
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Run one tool against a fresh session and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := tools.Args{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
					return fmt.Errorf("invalid JSON arguments: %w", err)
				}
			}

			reg := a.registry()
			sess := session.New(nil)
			if importFirst {
				if res := reg.Call(cmd.Context(), sess, "import_holdings", tools.Args{}); !res.OK {
					return fmt.Errorf("import holdings: %s", res.Error)
				}
			}

			res := reg.Call(cmd.Context(), sess, args[0], toolArgs)
			fmt.Fprintln(cmd.OutOrStdout(), res.JSON())
			if !res.OK {
				return fmt.Errorf("%s: %s", args[0], res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&importFirst, "import", false, "load the holdings file into the session first")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session driven by slash commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.registry()
			sess := session.New(nil)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "risk_desk %s. Type /help for commands, /quit to leave.\n", a.version)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				}
				fmt.Fprintln(out, reg.HandleCommand(cmd.Context(), sess, line))
			}
		},
	}
}
