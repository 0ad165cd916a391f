// Package answer holds the AnswerProvider implementations used to conduct
// an interview.
package answer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Canned answers every question with a fixed demo answer.
type Canned struct{}

func (Canned) Answer(_ context.Context, _ string, question string) (string, error) {
	return "Demo answer for: " + question, nil
}

// Interactive prints each question to out and reads one line from in.
// End of input yields an empty answer.
type Interactive struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

func (p *Interactive) Answer(ctx context.Context, round string, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if round != "" {
		fmt.Fprintf(p.out, "\n[%s] %s\nYour answer: ", round, question)
	} else {
		fmt.Fprintf(p.out, "\n%s\nYour answer: ", question)
	}

	line, err := p.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF):
		return strings.TrimSpace(line), nil
	case err != nil:
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
