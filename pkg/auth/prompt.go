package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks for credentials on a terminal
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewPrompter prompts on stdin/stderr
func NewPrompter() *Prompter {
	return NewPrompterWith(os.Stdin, os.Stderr)
}

// NewPrompterWith reads from in and writes prompts to out. Passwords are
// read without echo only when in is a terminal.
func NewPrompterWith(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Line reads one trimmed line
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads a secret, without echo on a terminal
func (p *Prompter) Password(label string) (string, error) {
	if p.fd >= 0 && term.IsTerminal(p.fd) {
		fmt.Fprintf(p.out, "%s: ", label)
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return p.Line(label)
}

// Account prompts for any missing part of an account
func (p *Prompter) Account(username string) (*Account, error) {
	var err error
	if username == "" {
		if username, err = p.Line("Instagram username"); err != nil {
			return nil, err
		}
	}
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	password, err := p.Password("Password for " + username)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	return &Account{Username: username, Password: password}, nil
}
