// Package cli holds the istock terminal commands. Each command talks to the
// API through the client package and prints the report markdown, rendered
// by glamour unless plain output is requested.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"go.uber.org/zap"

	"istock.com/client"
	"istock.com/report"
)

const msgRelogin = "Your session has expired, run `istock login` to sign in again."

// Env is shared by every command of one invocation.
type Env struct {
	BaseURL string
	Store   client.TokenStore
	Logger  *zap.Logger
	Out     io.Writer
	Err     io.Writer
	In      io.Reader
	// Plain prints raw markdown instead of styled terminal output.
	Plain bool
	Now   func() time.Time
}

func (e *Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) client() *client.Client {
	c := client.New(client.Config{BaseURL: e.BaseURL, Store: e.Store, Logger: e.Logger})
	c.SetOnUnauthorized(func() {
		fmt.Fprintln(e.Err, msgRelogin)
	})
	return c
}

func (e *Env) loader(c *client.Client) *report.Loader {
	l := report.NewLoader(c, e.Logger)
	if e.Now != nil {
		l.Now = e.Now
	}
	return l
}

// requireLogin prints a hint and reports false when no token is stored.
func (e *Env) requireLogin() bool {
	if e.Store.Token() != "" {
		return true
	}
	fmt.Fprintln(e.Err, "Not logged in, run `istock login` first.")
	return false
}

// fail prints err and maps it to an exit status. A 401 was already
// reported by the client hook.
func (e *Env) fail(action string, err error) subcommands.ExitStatus {
	if report.Unauthorized(err) {
		return subcommands.ExitFailure
	}
	msg := client.Detail(err)
	if msg == "" {
		msg = err.Error()
	}
	fmt.Fprintf(e.Err, "Error %s: %s\n", action, msg)
	e.log().Debug("command failed", zap.String("action", action), zap.Error(err))
	return subcommands.ExitFailure
}

func (e *Env) printMarkdown(md string) {
	if e.Plain {
		fmt.Fprint(e.Out, md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
		glamour.WithEmoji(),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(e.Out, out)
			return
		}
	}
	e.log().Warn("glamour render failed, printing raw markdown", zap.Error(err))
	fmt.Fprint(e.Out, md)
}

// NewEnv wires the default environment: the API from ISTOCK_API_URL and the
// token file under the user config directory.
func NewEnv(plain bool) (*Env, error) {
	path, err := client.DefaultTokenPath()
	if err != nil {
		return nil, fmt.Errorf("locate token file: %w", err)
	}
	logger := client.NewLogger(os.Stderr)
	if !strings.EqualFold(os.Getenv("ISTOCK_DEBUG"), "true") {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}
	return &Env{
		BaseURL: client.BaseURLFromEnv(),
		Store:   client.NewFileStore(path),
		Logger:  logger,
		Out:     os.Stdout,
		Err:     os.Stderr,
		In:      os.Stdin,
		Plain:   plain,
		Now:     time.Now,
	}, nil
}

var errNoInput = errors.New("no input")

// prompt reads one line from In after printing label to Err.
func (e *Env) prompt(label string) (string, error) {
	if e.In == nil {
		return "", errNoInput
	}
	fmt.Fprint(e.Err, label)
	line, err := bufio.NewReader(e.In).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", errNoInput
	}
	return line, nil
}
