package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// Ensure terminalResolver implements the interface.
var _ driven.AmbiguityResolver = (*terminalResolver)(nil)

// terminalResolver asks the operator to pick among same-named collections.
// Without an interactive terminal it abstains, which fails the space's
// upload instead of guessing.
type terminalResolver struct {
	cmd   *cobra.Command
	isTTY func() bool
}

func newTerminalResolver(cmd *cobra.Command) *terminalResolver {
	return &terminalResolver{
		cmd:   cmd,
		isTTY: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func (r *terminalResolver) Choose(ctx context.Context, spaceName string, candidates []driven.Collection) (int, error) {
	if !r.isTTY() {
		return 0, domain.ErrAbstained
	}

	r.cmd.Printf("\n%d collections are named %q:\n", len(candidates), spaceName)
	for i, col := range candidates {
		desc := col.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		r.cmd.Printf("  [%d] %s  %s\n", i+1, col.ID, desc)
	}
	r.cmd.Printf("Select a collection (1-%d) or press enter to skip: ", len(candidates))

	line, err := readLine(ctx, r.cmd.InOrStdin())
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, domain.ErrAbstained
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(candidates) {
		return 0, fmt.Errorf("invalid selection %q: %w", line, domain.ErrInvalidInput)
	}
	return choice - 1, nil
}

// readLine reads one line, honouring context cancellation.
func readLine(ctx context.Context, in io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return res.line, nil
	}
}
