// File: cmd/server/cli.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/identity"
	"prepwise_auth/internal/sessionclient"
	"prepwise_auth/internal/workflow"

	"go.uber.org/zap"
)

// terminalNotifier prints workflow feedback the way a toast would show it.
type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) Success(message string) { fmt.Fprintf(n.out, "✔ %s\n", message) }
func (n terminalNotifier) Error(message string)   { fmt.Fprintf(n.out, "✖ %s\n", message) }

// terminalNavigator reports where a browser client would go next.
type terminalNavigator struct {
	out     io.Writer
	baseURL string
}

func (n terminalNavigator) Proceed(_ context.Context, destination string) {
	fmt.Fprintf(n.out, "→ continue at %s%s\n", strings.TrimRight(n.baseURL, "/"), destination)
}

// clientCommand holds the parsed flags of a workflow subcommand.
type clientCommand struct {
	name     string
	email    string
	password string
	provider string
	verbose  bool
}

func parseClientCommand(cmd string, args []string, stdin io.Reader) (*clientCommand, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	c := &clientCommand{}
	switch cmd {
	case "sign-up":
		fs.StringVar(&c.name, "name", "", "Display name for the new account")
		fallthrough
	case "sign-in":
		fs.StringVar(&c.email, "email", "", "Account email address")
		fs.StringVar(&c.password, "password", "", "Account password (read from stdin when empty)")
	case "oauth":
		fs.StringVar(&c.provider, "provider", "", "OAuth provider: google or github")
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	fs.BoolVar(&c.verbose, "v", false, "Print every workflow state transition")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cmd != "oauth" && c.password == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		c.password = strings.TrimRight(line, "\r\n")
	}
	return c, nil
}

// newController wires the workflow against the real identity provider and
// session endpoint.
func newController(cfg *config.Config, logger *zap.Logger, out io.Writer) (*workflow.Controller, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	authorizer := identity.NewLoopbackAuthorizer(cfg, func(authURL string) error {
		_, err := fmt.Fprintf(out, "Open this URL in your browser to continue:\n\n  %s\n\n", authURL)
		return err
	}, logger)
	provider := identity.NewFirebaseClient(cfg, authorizer, logger)
	sessions, err := sessionclient.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return workflow.NewController(
		provider,
		sessions,
		terminalNavigator{out: out, baseURL: cfg.BackendBaseURL},
		terminalNotifier{out: out},
		cfg,
		logger,
	), nil
}

// terminalClient is one terminal session. All submissions made through it
// share a single Guard.
type terminalClient struct {
	controller *workflow.Controller
	guard      workflow.Guard
	out        io.Writer
}

func newTerminalClient(controller *workflow.Controller, out io.Writer) *terminalClient {
	return &terminalClient{controller: controller, out: out}
}

// submit executes one submission and reports whether it succeeded. It
// returns workflow.ErrSubmissionInFlight while another submission runs.
func (t *terminalClient) submit(ctx context.Context, cmd *clientCommand, mode string) (bool, error) {
	controller := t.controller
	if cmd.verbose {
		controller = controller.WithObserver(func(s workflow.State) {
			fmt.Fprintf(t.out, "  · %s\n", s)
		})
	}

	outcome, err := t.guard.Run(func() workflow.Outcome {
		if mode == "oauth" {
			return controller.SubmitOAuthCredentials(ctx, cmd.provider)
		}
		authMode, perr := workflow.ParseAuthMode(mode)
		if perr != nil {
			return workflow.Outcome{Failure: workflow.FailureValidation, Err: perr}
		}
		return controller.SubmitPasswordCredentials(ctx, authMode, workflow.Credentials{
			Name:     cmd.name,
			Email:    cmd.email,
			Password: cmd.password,
		})
	})
	if err != nil {
		return false, err
	}
	return outcome.Success, nil
}
