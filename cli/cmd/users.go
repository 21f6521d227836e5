package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Account administration (admin only)",
	Long: `Manage ThreatLens accounts. Requires a token with the admin role; run
'tlens refresh' after being promoted.`,
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := c.ListUsers(cmd.Context(), page, limit)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		return render(cmd, list, func() {
			if len(list.Data) == 0 {
				output.Info("No users found")
				return
			}

			table := output.NewTable([]string{"ID", "Name", "Email", "Role", "Created At"})
			for _, u := range list.Data {
				table.AddRow([]string{
					u.ID,
					u.Name,
					u.Email,
					u.Role,
					u.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			table.Render()
			output.Info("\nPage %d of %d (%d total users)", list.CurrentPage, list.TotalPages, list.Total)
		})
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change an account's name, email or role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		name := changedString(cmd, "name")
		email := changedString(cmd, "email")
		role := changedString(cmd, "role")
		if name == nil && email == nil && role == nil {
			return fmt.Errorf("nothing to update: pass --name, --email or --role")
		}

		user, err := c.UpdateUser(cmd.Context(), args[0], name, email, role)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		return render(cmd, user, func() {
			output.Success("User %s updated (%s, %s)", user.ID, user.Email, user.Role)
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an account with all its records and alerts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		if err := c.DeleteUser(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		output.Success("User %s deleted", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	usersListCmd.Flags().Int("page", 1, "Page number")
	usersListCmd.Flags().Int("limit", 0, "Results per page (default: server setting)")

	usersUpdateCmd.Flags().String("name", "", "New display name")
	usersUpdateCmd.Flags().String("email", "", "New account email")
	usersUpdateCmd.Flags().String("role", "", "New role (user, admin)")
}
