package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-saved/adapters/gocommand"
	savedcommand "github.com/goliatone/go-saved/command"
	"github.com/goliatone/go-saved/core"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			// Restore without the bridge so no page is fetched.
			if _, err := rt.facade.Service().Restore(cmd.Context()); err != nil {
				return err
			}
			status, err := rt.status(cmd.Context())
			if err != nil {
				return err
			}

			identity := ""
			if status.State == core.SessionStateAuthenticated {
				if who, err := rt.facade.Service().Sessions().Identity(cmd.Context()); err == nil {
					identity = "u/" + who.Name
				} else {
					identity = "unresolved (" + core.ErrorReason(err) + ")"
				}
			}
			rows := [][]string{
				{"State", string(status.State)},
				{"Identity", identity},
				{"Data dir", rt.settings.DataDir},
				{"Storage", rt.cfg.Storage.Driver},
				{"Config", rt.settings.ConfigPath},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := gocommand.Dispatch(cmd.Context(), savedcommand.LogoutMessage{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
