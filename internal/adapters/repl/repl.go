package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stock-engine/internal/adapters/cli"
	"stock-engine/internal/app"
)

var errExit = errors.New("exit")

// Run starts the interactive REPL loop. Every slash command maps onto the
// one-shot CLI command of the same name; /new-invoice runs a line-by-line wizard.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out, "Stock Engine")
	fmt.Fprintln(out, "Type /help for commands, /exit to quit.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if dispErr := dispatch(ctx, svc, reader, out, input); dispErr != nil {
				if errors.Is(dispErr, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				fmt.Fprintf(out, "Error: %v\n", dispErr)
			}
		}
		if err != nil {
			// EOF on stdin ends the session.
			return
		}
	}
}

func dispatch(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer, input string) error {
	if !strings.HasPrefix(input, "/") {
		fmt.Fprintln(out, "Commands start with '/'. Type /help.")
		return nil
	}
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])

	switch cmd {
	case "help", "h":
		fmt.Fprintln(out, cli.Usage)
		fmt.Fprintln(out, "  new-invoice <warehouse-id> <customer name...>  interactive invoice")
		fmt.Fprintln(out, "  exit")
		return nil
	case "exit", "quit", "e", "q":
		return errExit
	case "new-invoice":
		if len(tokens) < 3 {
			fmt.Fprintln(out, "Usage: /new-invoice <warehouse-id> <customer name>")
			return nil
		}
		return handleNewInvoice(ctx, reader, out, svc, tokens[1], strings.Join(tokens[2:], " "))
	case "invoice":
		fmt.Fprintln(out, "Use /new-invoice in the REPL; 'invoice' reads JSON from stdin in one-shot mode.")
		return nil
	}

	tokens[0] = cmd
	return cli.Run(ctx, svc, tokens, out, strings.NewReader(""))
}
