package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/poll"
)

// ErrLoginRequired is returned when the site asks for a login that the
// configured gate cannot wait for.
var ErrLoginRequired = errors.New("login required")

// LoginGate suspends the run until the operator has logged in.
type LoginGate interface {
	Await(ctx context.Context, tab Tab) error
}

// ConsoleGate waits for the operator to press Enter.
type ConsoleGate struct {
	In  io.Reader
	Out io.Writer
}

func (g ConsoleGate) Await(ctx context.Context, _ Tab) error {
	fmt.Fprintln(g.Out, `Log in through the browser window, then press "Enter" to continue`)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(g.In).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: input closed before confirmation", ErrLoginRequired)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// PollGate waits until the login form disappears from the tab.
type PollGate struct {
	Selector string
	Policy   poll.Policy
}

func (g PollGate) Await(ctx context.Context, tab Tab) error {
	err := poll.Until(ctx, g.Policy, func(context.Context) (bool, error) {
		present, err := tab.Exists(g.Selector)
		return !present, err
	})
	if errors.Is(err, poll.ErrExhausted) {
		return fmt.Errorf("%w: still logged out after %s", ErrLoginRequired, g.Policy.Budget())
	}
	return err
}

// FailGate refuses to wait. It suits unattended runs that must rely on a
// stored session.
type FailGate struct{}

func (FailGate) Await(context.Context, Tab) error {
	return ErrLoginRequired
}

const loginPollInterval = 2 * time.Second

// NewGate builds the gate named by cfg.LoginGate.
func NewGate(cfg app.SessionConfig, in io.Reader, out io.Writer) (LoginGate, error) {
	switch cfg.LoginGate {
	case "console":
		return ConsoleGate{In: in, Out: out}, nil
	case "poll":
		return PollGate{
			Selector: cfg.LoginSelector,
			Policy: poll.Policy{
				Interval: loginPollInterval,
				Attempts: max(int(cfg.LoginTimeout/loginPollInterval), 1),
			},
		}, nil
	case "fail":
		return FailGate{}, nil
	default:
		return nil, fmt.Errorf("unknown login gate %q", cfg.LoginGate)
	}
}
