// Package interactive asks the user to pick a game and to enter the account
// used for settings generation.
package interactive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/credential"
)

// UI is everything the pipeline needs from the user.
type UI interface {
	catalog.Selector
	credential.Prompter
}

// New returns a terminal UI when stdin is a terminal and a line prompter
// otherwise.
func New() UI {
	if IsTerminal() {
		return NewHuhUI()
	}
	return NewPrompter()
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompter reads answers line by line.
type Prompter struct {
	out          io.Writer
	scanner      *bufio.Scanner
	readPassword func() (string, error)
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	p := NewPrompterWithIO(os.Stdin, os.Stdout)
	if IsTerminal() {
		p.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			_, _ = fmt.Fprintln(p.out)
			return string(b), err
		}
	}
	return p
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
	p.readPassword = p.readLine
	return p
}

func (p *Prompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// Select lists apps with a number each and reads a choice until it is
// valid. "q" or end of input declines.
func (p *Prompter) Select(_ context.Context, query string, apps []catalog.App) (catalog.App, bool, error) {
	_, _ = fmt.Fprintf(p.out, "Matches for %q:\n", query)
	for i, app := range apps {
		_, _ = fmt.Fprintf(p.out, "%d. %s [%d]\n", i+1, app.Name, app.AppID)
	}

	_, _ = fmt.Fprint(p.out, "Select game: ")
	for {
		input, err := p.readLine()
		if err == io.EOF {
			return catalog.App{}, false, nil
		}
		if err != nil {
			return catalog.App{}, false, err
		}
		if strings.EqualFold(input, "q") {
			return catalog.App{}, false, nil
		}

		n, err := strconv.Atoi(input)
		if err == nil && n >= 1 && n <= len(apps) {
			return apps[n-1], true, nil
		}
		_, _ = fmt.Fprint(p.out, "Invalid selection. Select game: ")
	}
}

// PromptCredentials asks for a Steam username and password.
func (p *Prompter) PromptCredentials(_ context.Context) (credential.Credentials, error) {
	_, _ = fmt.Fprint(p.out, "Enter your steam username: ")
	user, err := p.readLine()
	if err != nil {
		return credential.Credentials{}, fmt.Errorf("failed to read username: %w", err)
	}

	_, _ = fmt.Fprint(p.out, "Enter your steam password: ")
	pw, err := p.readPassword()
	if err != nil {
		return credential.Credentials{}, fmt.Errorf("failed to read password: %w", err)
	}

	return credential.Credentials{Username: user, Password: pw}, nil
}
