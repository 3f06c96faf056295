package main

import (
	"github.com/spf13/cobra"

	"github.com/mikey-austin/pitv/internal/adapters/output"
	"github.com/mikey-austin/pitv/internal/core"
)

func loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and remember the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(_ *session, snap core.Snapshot) error {
				return app.printer.Print(output.Message("logged in as " + string(snap.Role)))
			})
		},
	}
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			p, err := core.LoadPreferences(app.log, app.prefs, app.endpoint)
			if err != nil {
				return err
			}
			p.ClearCredential()
			return app.printer.Print(output.Message("logged out"))
		},
	}
}

func warningCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warning",
		Short: "Manage the power-on warning",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss",
		Short: "Stop showing the power-on warning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			p, err := core.LoadPreferences(app.log, app.prefs, app.endpoint)
			if err != nil {
				return err
			}
			p.SetShowPowerOnWarning(false)
			return app.printer.Print(output.Message("warning dismissed"))
		},
	})
	return cmd
}
