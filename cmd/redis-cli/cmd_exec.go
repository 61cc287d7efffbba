package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/pior/redis"
	"github.com/pior/redis/resp"
)

type ExecCommand struct {
	Args []string `arg:"" optional:"" help:"Command name and arguments."`
}

func (c *ExecCommand) Run(ctx context.Context, logger *zap.Logger) error {
	client, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if len(c.Args) > 0 {
		return execute(ctx, os.Stdout, client, c.Args)
	}

	err = prompt(ctx, os.Stdin, os.Stdout, client)
	if err != nil {
		return err
	}
	return client.Shutdown(ctx)
}

func prompt(ctx context.Context, in io.Reader, out io.Writer, client redis.Invoker) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		args, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch strings.ToLower(args[0]) {
		case "quit", "exit":
			return nil
		}

		if err := execute(ctx, out, client, args); err != nil {
			if errors.Is(err, redis.ErrConnectionClosing) || errors.Is(err, redis.ErrConnectionClosed) {
				return err
			}
			fmt.Fprintf(out, "(error) %v\n", err)
		}
	}
	return scanner.Err()
}

// execute prints the reply in redis-cli format. Error replies are printed
// too, only failures to get a reply are returned.
func execute(ctx context.Context, out io.Writer, client redis.Invoker, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, CLI.Timeout)
	defer cancel()

	cmdArgs := make([]any, len(args)-1)
	for i, a := range args[1:] {
		cmdArgs[i] = a
	}

	req := client.Invoke(args[0], cmdArgs...)
	_, err := req.Wait(ctx)

	reply, ok := req.Reply()
	if !ok {
		return err
	}

	fmt.Fprintln(out, resp.Format(reply))
	return nil
}

// splitArgs splits a prompt line on spaces, honoring double and single quotes.
// Inside double quotes, backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, errors.New("unbalanced quotes")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
