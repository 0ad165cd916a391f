package answer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCanned(t *testing.T) {
	t.Parallel()

	got, err := Canned{}.Answer(context.Background(), "Technical", "Describe project X.")
	if err != nil || got != "Demo answer for: Describe project X." {
		t.Fatalf("Answer() = %q, %v", got, err)
	}
}

func TestInteractiveReadsOneLinePerQuestion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewInteractive(strings.NewReader("first answer\r\n  second  \nlast"), &out)

	want := []string{"first answer", "second", "last", ""}
	for i, w := range want {
		got, err := p.Answer(context.Background(), "Round 1", "q")
		if err != nil {
			t.Fatalf("Answer(%d) error = %v", i, err)
		}
		if got != w {
			t.Fatalf("Answer(%d) = %q, want %q", i, got, w)
		}
	}
	if !strings.Contains(out.String(), "[Round 1] q\nYour answer: ") {
		t.Fatalf("prompt output = %q", out.String())
	}
}

func TestInteractiveCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewInteractive(strings.NewReader("x\n"), &out).Answer(ctx, "", "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Answer() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Fatalf("question printed after cancellation: %q", out.String())
	}
}
