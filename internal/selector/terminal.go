package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/ui"
)

// TerminalPrompter renders numbered checkbox lists and reads one answer line.
//
// Answers: empty keeps the preselection, "all" and "none" do what they say,
// anything else is a comma separated list of numbers and ranges ("1,3-5").
//
// A TerminalPrompter is not safe for concurrent use. A read abandoned by a
// cancelled prompt stays pending and answers the next prompt.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer

	// pending receives the line of the read in flight, if any.
	pending chan lineResult
}

// NewTerminalPrompter reads answers from in and renders lists to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

type lineResult struct {
	line string
	err  error
}

func (p *TerminalPrompter) SelectMany(ctx context.Context, label string, items []Item) ([]int, error) {
	var defaults []int
	for i, item := range items {
		if item.Selected {
			defaults = append(defaults, i)
		}
	}

	p.render(label, items)

	for {
		fmt.Fprint(p.out, ui.Info.Sprint("→")+" Select items (e.g. 1,3-5, all, none; enter keeps marked): ")

		line, err := p.readLine(ctx)
		if err != nil {
			return nil, err
		}

		chosen, err := ParseSelection(line, len(items), defaults)
		if err != nil {
			fmt.Fprintln(p.out, ui.Error.Sprint("✗")+" "+err.Error())
			continue
		}
		return chosen, nil
	}
}

func (p *TerminalPrompter) render(label string, items []Item) {
	fmt.Fprintln(p.out, ui.Group.Sprint(label))

	width := len(strconv.Itoa(len(items)))
	group := ""
	for i, item := range items {
		if item.Group != "" && (i == 0 || item.Group != group) {
			group = item.Group
			fmt.Fprintf(p.out, "  %s\n", ui.Group.Sprint(group))
		}
		fmt.Fprintf(p.out, "    %*d) %s %s\n", width, i+1, ui.Check(item.Selected), item.Label)
	}
}

// readLine blocks for one line of input or until ctx is done.
func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if p.pending == nil {
		p.pending = make(chan lineResult, 1)
		go func(done chan<- lineResult) {
			line, err := p.in.ReadString('\n')
			done <- lineResult{line: line, err: err}
		}(p.pending)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-p.pending:
		p.pending = nil
		if res.err != nil {
			if errors.Is(res.err, io.EOF) && strings.TrimSpace(res.line) != "" {
				return res.line, nil
			}
			if errors.Is(res.err, io.EOF) {
				return "", kerrors.ErrPromptAborted
			}
			return "", fmt.Errorf("failed to read selection: %w", res.err)
		}
		return res.line, nil
	}
}

// ParseSelection turns an answer into sorted zero-based indices.
// n is the number of items, defaults is returned for an empty answer.
func ParseSelection(input string, n int, defaults []int) ([]int, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "":
		return slices.Clone(defaults), nil
	case "none":
		return []int{}, nil
	case "all", "*":
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	var out []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, err := parseIndex(lo, n)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			end, err = parseIndex(hi, n)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}

		for i := start; i <= end; i++ {
			out = append(out, i)
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

func parseIndex(s string, n int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", strings.TrimSpace(s))
	}
	if v < 1 || v > n {
		return 0, fmt.Errorf("%d is out of range (1-%d)", v, n)
	}
	return v - 1, nil
}
