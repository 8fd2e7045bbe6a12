package main

import (
	"fmt"
	"strings"

	"github.com/Stewz00/go-backoffice-service/internal/app"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/spf13/cobra"
)

func createAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a SUPER_ADMIN, or promote and reset an existing account",
		Example: `  backoffice-cli create-admin --email admin@example.com --password 'changeme123'
  backoffice-cli create-admin -e admin@example.com -p 'changeme123' --name "Ops"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := a.Users.CreateAdmin(cmd.Context(), name, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "super admin ready: %s (id %d)\n", user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "Super Admin", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func setRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change the role of an account (SUPER_ADMIN, ADMIN or ATENDENTE)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.Role(strings.ToUpper(args[1]))

			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := a.Users.SetRoleByEmail(cmd.Context(), args[0], role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
				return nil
			})
		},
	}
}
