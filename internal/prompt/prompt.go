// Package prompt reads answers from an interactive terminal.
//
// Every prompt honours its context: cancelling the context (for example on
// an interrupt signal) or reaching end of input returns ErrCancelled. Menu
// style prompts also accept "q" to quit. Invalid answers print a short
// message and ask again.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrCancelled is returned when the user quits or input ends.
var ErrCancelled = errors.New("cancelled by user")

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in   io.Reader
	out  io.Writer
	once sync.Once
	rx   chan string
}

// New creates a prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Out is the writer prompts are printed to.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Printf writes to the prompt output.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line to the prompt output.
func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// start reads input lines in the background so a pending read can be
// abandoned when the context ends.
func (p *Prompter) start() {
	p.once.Do(func() {
		p.rx = make(chan string)
		go func() {
			defer close(p.rx)
			sc := bufio.NewScanner(p.in)
			for sc.Scan() {
				p.rx <- sc.Text()
			}
		}()
	})
}

// Line prints label and returns the trimmed answer.
func (p *Prompter) Line(ctx context.Context, label string) (string, error) {
	p.start()
	fmt.Fprint(p.out, label)

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ErrCancelled
	case line, ok := <-p.rx:
		if !ok {
			fmt.Fprintln(p.out)
			return "", ErrCancelled
		}
		return strings.TrimSpace(line), nil
	}
}

func isQuit(s string) bool {
	return strings.EqualFold(s, "q")
}

// Ask returns the answer, or def when the answer is empty.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	s, err := p.Line(ctx, label+": ")
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Required asks until the answer is not empty.
func (p *Prompter) Required(ctx context.Context, label, def string) (string, error) {
	for {
		s, err := p.Ask(ctx, label, def)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		p.Println("❌ This field is required.")
	}
}

// Confirm asks a yes/no question. An empty answer returns def.
func (p *Prompter) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		s, err := p.Line(ctx, fmt.Sprintf("%s (%s): ", label, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(s) {
		case "":
			return def, nil
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nej":
			return false, nil
		case "q":
			return false, ErrCancelled
		}
		p.Println("❌ Please answer y or n.")
	}
}

// Choose asks for a number between 1 and n and returns its zero-based index.
func (p *Prompter) Choose(ctx context.Context, label string, n int) (int, error) {
	for {
		s, err := p.Line(ctx, fmt.Sprintf("%s (1-%d) or 'q' to quit: ", label, n))
		if err != nil {
			return 0, err
		}
		if isQuit(s) {
			return 0, ErrCancelled
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			p.Println("❌ Invalid input. Please enter a number or 'q' to quit.")
			continue
		}
		if i < 1 || i > n {
			p.Printf("❌ Invalid selection. Please enter a number between 1 and %d\n", n)
			continue
		}
		return i - 1, nil
	}
}

// Select asks for a list of item numbers (see ParseSelection) and returns
// the zero-based indexes.
func (p *Prompter) Select(ctx context.Context, label string, n int) ([]int, error) {
	for {
		s, err := p.Line(ctx, label+" (or 'q' to quit): ")
		if err != nil {
			return nil, err
		}
		if isQuit(s) {
			return nil, ErrCancelled
		}
		idx, err := ParseSelection(s, n)
		if err != nil {
			p.Printf("❌ %v\n", err)
			continue
		}
		return idx, nil
	}
}

// Int asks for a whole number no smaller than least.
func (p *Prompter) Int(ctx context.Context, label string, least int) (int, error) {
	for {
		s, err := p.Line(ctx, label+": ")
		if err != nil {
			return 0, err
		}
		if isQuit(s) {
			return 0, ErrCancelled
		}
		i, err := strconv.Atoi(s)
		if err != nil || i < least {
			p.Printf("❌ Please enter a whole number of at least %d.\n", least)
			continue
		}
		return i, nil
	}
}

// Decimal asks for a number, accepting a decimal comma. An empty answer
// returns def.
func (p *Prompter) Decimal(ctx context.Context, label string, def decimal.Decimal) (decimal.Decimal, error) {
	for {
		s, err := p.Line(ctx, fmt.Sprintf("%s [%s]: ", label, def.String()))
		if err != nil {
			return decimal.Zero, err
		}
		if isQuit(s) {
			return decimal.Zero, ErrCancelled
		}
		if s == "" {
			return def, nil
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		if err != nil {
			p.Println("❌ Please enter a number, e.g. 500 or 612,50.")
			continue
		}
		return d, nil
	}
}

// ParseSelection parses "all", or comma separated item numbers and ranges
// such as "1,3,5-7", into zero-based indexes in the order given. Repeated
// items are kept once.
func ParseSelection(s string, n int) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") || strings.EqualFold(s, "a") {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}

	seen := make(map[int]bool)
	var idx []int
	add := func(i int) error {
		if i < 1 || i > n {
			return fmt.Errorf("invalid task number: %d", i)
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i-1)
		}
		return nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid input %q: enter numbers separated by commas", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || last < first {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		for i := first; i <= last; i++ {
			if err := add(i); err != nil {
				return nil, err
			}
		}
	}

	if len(idx) == 0 {
		return nil, errors.New("no tasks selected")
	}
	return idx, nil
}
