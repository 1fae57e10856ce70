package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	savedcommand "github.com/goliatone/go-saved/command"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var skipPage bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize with Reddit through the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.cfg.ValidateLogin(); err != nil {
				return err
			}
			receiver, err := newCallbackReceiver(rt.cfg.RedirectURI)
			if err != nil {
				return err
			}
			if err := receiver.Start(); err != nil {
				return err
			}
			defer receiver.Shutdown(cmd.Context())

			request, err := rt.beginLogin(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in a browser to authorize saved:")
			fmt.Fprintf(out, "  %s\n", request.URL)
			fmt.Fprintf(out, "Waiting for the redirect on %s ...\n", rt.cfg.RedirectURI)

			if timeout <= 0 {
				timeout = rt.settings.LoginTimeout
			}
			waitCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			grant, err := receiver.Wait(waitCtx)
			if err != nil {
				return fmt.Errorf("login callback: %w", err)
			}

			seq, err := rt.initialize(cmd.Context(), savedcommand.InitializeSessionMessage{Grant: &grant})
			if err != nil {
				return err
			}
			if skipPage {
				fmt.Fprintln(out, "Logged in.")
				return nil
			}
			event, err := rt.page(cmd.Context(), seq, "")
			if err != nil {
				return err
			}
			if !asJSON {
				if status, err := rt.status(cmd.Context()); err == nil && status.Identity != nil {
					fmt.Fprintf(out, "Logged in as u/%s\n", status.Identity.Name)
				}
			}
			return writePage(out, event, asJSON)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the browser redirect")
	cmd.Flags().BoolVar(&skipPage, "no-page", false, "Do not fetch the first page after logging in")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the first page as JSON")
	return cmd
}
