// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mxcmd/internal/config"
	"mxcmd/internal/console"
	"mxcmd/internal/interp"
	"mxcmd/internal/issue"
	"mxcmd/pkg/types"
)

type serveFlagValues struct {
	host  string
	port  int
	token string
}

func newServeCommand(app *App) *cobra.Command {
	var flags serveFlagValues
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REPL over SSH",
		Long: `Serve the REPL over SSH. Every session gets its own interpreter,
configured like the local one. A command given to ssh runs as a script and
its status becomes the session's exit status.

Connect with: ssh -p PORT HOST, using the console token as the password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), app, cmd.Flags().Changed("port"), flags)
		},
	}
	cmd.Flags().StringVar(&flags.host, "host", "", "address to bind (overrides console.host)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "port to bind, 0 for any free port (overrides console.port)")
	cmd.Flags().StringVar(&flags.token, "token", "", "session password (overrides console.token)")
	return cmd
}

func serve(ctx context.Context, app *App, portSet bool, flags serveFlagValues) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}

	cc := s.cfg.Console
	if flags.host != "" {
		cc.Host = flags.host
	}
	if portSet {
		cc.Port = types.ListenPort(flags.port)
	}
	if flags.token != "" {
		cc.Token = flags.token
	}
	if cc.HostKeyPath == "" {
		if cc.HostKeyPath, err = config.DefaultHostKeyPath(); err != nil {
			return consoleError(err, cc)
		}
	}

	srv, err := console.NewServer(console.ServerConfig{
		Host:        cc.Host,
		Port:        cc.Port,
		HostKeyPath: cc.HostKeyPath,
		Token:       cc.Token,
		Prompt:      s.cfg.Prompt,
		Logger:      s.logger,
		NewInterpreter: func(ctx context.Context) (*interp.Interpreter, error) {
			return app.newInterpreter(ctx, s, nil, io.Discard)
		},
	})
	if err != nil {
		return consoleError(err, cc)
	}
	if err := srv.Start(ctx); err != nil {
		return consoleError(err, cc)
	}
	fmt.Fprintf(app.stdout, "%s console listening on %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(srv.Addr()))

	waitErr := make(chan error, 1)
	go func() { waitErr <- srv.Wait() }()
	select {
	case <-ctx.Done():
		return srv.Stop()
	case err := <-waitErr:
		if err != nil {
			return consoleError(err, cc)
		}
		return nil
	}
}

func consoleError(err error, cc config.ConsoleConfig) error {
	return issue.NewErrorContext().
		WithOperation("start SSH console").
		WithResource(cc.Port.Addr(cc.Host)).
		WithIssue(issue.ConsoleStartFailedId).
		Wrap(err).
		BuildError()
}
