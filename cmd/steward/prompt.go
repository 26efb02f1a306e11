package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/types"
)

// terminalPrompt builds the interactive PromptFunc used by `run`. The
// answer grammar: y approves once, a approves and remembers, n denies
// once, never denies and remembers. Anything else denies.
func terminalPrompt(in io.Reader, out io.Writer) approval.PromptFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, req *types.ApprovalRequest) (bool, bool, error) {
		fmt.Fprintf(out, "\n[%s] %s\n", strings.ToUpper(string(req.Risk)), req.Description)
		for _, op := range req.Operations {
			fmt.Fprintf(out, "  - %s\n", op)
		}
		fmt.Fprint(out, "Approve? [y/n/a(lways)/never]: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return false, false, err
		}
		return parseAnswer(line)
	}
}

func parseAnswer(line string) (approved, remember bool, err error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, false, nil
	case "a", "always":
		return true, true, nil
	case "never":
		return false, true, nil
	default:
		return false, false, nil
	}
}
