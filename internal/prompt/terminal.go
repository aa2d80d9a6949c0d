// Package prompt implements the credential prompt on the controlling
// terminal.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"rdview/native/internal/domain"
)

// Terminal asks for a username and password on the terminal. A non-empty
// message is the previous failure reason and is rendered highlighted in
// red above the fields, like the inline failure banner of the browser
// client.
type Terminal struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

func (t *Terminal) Prompt(ctx context.Context, message string) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credentials{}, err
	}

	if message != "" {
		fmt.Fprintf(t.out, "\x1b[31m%s\x1b[0m\n", message)
	}

	fmt.Fprint(t.out, "Username: ")
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("read username: %w", err)
	}

	fmt.Fprint(t.out, "Password: ")
	password, err := term.ReadPassword(int(t.in.Fd()))
	fmt.Fprintln(t.out)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("read password: %w", err)
	}

	return domain.Credentials{
		Username: strings.TrimSpace(line),
		Password: string(password),
	}, nil
}
