package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// console implements the host collaborators on a terminal.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// nextLine returns the next non-blank input line, or io.EOF.
func (c *console) nextLine() (string, error) {
	for {
		line, err := c.in.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Dial prints the number without its scheme, whatever its case.
func (c *console) Dial(_ context.Context, telURL string) error {
	number := telURL
	if len(number) >= len("tel:") && strings.EqualFold(number[:len("tel:")], "tel:") {
		number = number[len("tel:"):]
	}
	_, err := fmt.Fprintf(c.out, "dial %s\n", number)
	return err
}

func (c *console) Confirm(_ context.Context, url string) (bool, error) {
	if _, err := fmt.Fprintf(c.out, "open %s in the browser? [y/N] ", url); err != nil {
		return false, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (c *console) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintf(c.out, "open %s\n", url)
	return err
}
