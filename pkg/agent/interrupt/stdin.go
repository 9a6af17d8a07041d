package interrupt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// StdinPrompter reads one-line answers from an input stream, os.Stdin by
// default. At most one request is pending at a time; if the stream closes
// while a request is pending, that request fails immediately instead of
// hanging the run.
type StdinPrompter struct {
	out     io.Writer
	lines   chan string
	readErr chan error
	mu      sync.Mutex
	started sync.Once
	reader  *bufio.Reader
}

// NewStdinPrompter creates a prompter reading from in (nil means os.Stdin)
// and writing prompt text to out (nil means os.Stderr, keeping stdout clean
// for run output).
func NewStdinPrompter(in io.Reader, out io.Writer) *StdinPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &StdinPrompter{
		out:     out,
		reader:  bufio.NewReader(in),
		lines:   make(chan string),
		readErr: make(chan error, 1),
	}
}

// readLoop feeds lines into the channel until the stream errors or closes.
func (p *StdinPrompter) readLoop() {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			p.readErr <- err
			close(p.lines)
			return
		}
		p.lines <- trimNewline(line)
	}
}

// Prompt shows the prompt text and blocks for one line of input. It returns
// an error when the context is canceled or the input stream has closed.
func (p *StdinPrompter) Prompt(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started.Do(func() { go p.readLoop() })

	if _, err := fmt.Fprint(p.out, text); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("input stream closed")
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
