package stack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator questions. Both calls block without a
// timeout; the operator aborts with Ctrl-C.
type Prompter interface {
	// Confirm prints question and reports whether the answer was exactly
	// "y" or "Y".
	Confirm(question string) (bool, error)

	// WaitForEnter prints message and blocks until a line is entered.
	WaitForEnter(message string) error
}

// ReaderPrompter reads answers line by line from a reader, normally stdin.
type ReaderPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderPrompter creates a Prompter reading from in and writing to out.
func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{in: bufio.NewReader(in), out: out}
}

// Confirm accepts only "y" or "Y". Anything else, including "yes", an
// empty line, or end of input, is a no.
func (p *ReaderPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)

	line, err := p.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return false, nil
		}
		return false, err
	}
	return line == "y" || line == "Y", nil
}

// WaitForEnter returns once a line (or end of input) is read.
func (p *ReaderPrompter) WaitForEnter(message string) error {
	fmt.Fprint(p.out, message)
	if _, err := p.readLine(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// readLine returns the next line without its line terminator. A final line
// without a newline is returned as-is; io.EOF is only returned when nothing
// was read.
func (p *ReaderPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
