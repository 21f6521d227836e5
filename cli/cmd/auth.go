package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/internal/config"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to ThreatLens",
	Long:  "Authenticate with the respond API and save the token to a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		resp, err := client.NewClient(apiURL(cmd), "").Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		return saveLogin(cmd, email, resp)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a ThreatLens account",
	Long:  "Register a new account and log in with it",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		resp, err := client.NewClient(apiURL(cmd), "").Signup(cmd.Context(), name, email, password)
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}
		output.Success("Account created for %s", email)
		return saveLogin(cmd, email, resp)
	},
}

func saveLogin(cmd *cobra.Command, email string, resp *client.AuthResponse) error {
	profile := profileName(cmd)
	p := &config.Profile{
		APIURL: apiURL(cmd),
		Email:  email,
		Token:  resp.Token,
	}
	if !resp.ExpiresAt.IsZero() {
		p.ExpiresAt = resp.ExpiresAt.Format(time.RFC3339)
	}
	if err := cfg.SaveProfile(profile, p); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	output.Success("Logged in as %s", email)
	output.Info("Profile '%s' saved to %s", profile, cfg.Path())
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from ThreatLens",
	Long:  "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := profileName(cmd)
		if err := cfg.RemoveProfile(profile); err != nil {
			return err
		}

		output.Success("Logged out from profile '%s'", profile)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display current user information",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		user, err := c.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("token invalid or expired, please run 'tlens login': %w", err)
		}

		return render(cmd, user, func() {
			output.Info("Profile: %s", profileName(cmd))
			output.Info("User ID: %s", user.ID)
			output.Info("Name:    %s", user.Name)
			output.Info("Email:   %s", user.Email)
			output.Info("Role:    %s", user.Role)
			output.Info("API URL: %s", apiURL(cmd))
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the stored token",
	Long:  "Exchange the profile's token for a new one reflecting the account's current role",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := profileName(cmd)
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}

		resp, err := client.NewClient(apiURL(cmd), p.Token).Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("token invalid or expired, please run 'tlens login': %w", err)
		}

		p.Token = resp.Token
		p.ExpiresAt = ""
		if !resp.ExpiresAt.IsZero() {
			p.ExpiresAt = resp.ExpiresAt.Format(time.RFC3339)
		}
		if err := cfg.SaveProfile(profile, p); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Token renewed for profile '%s'", profile)
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your account profile",
	Long: `Without flags, show the account. With --name or --email, update it.
Changing the email does not touch the stored profile's credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		name := changedString(cmd, "name")
		email := changedString(cmd, "email")

		var user *client.User
		if name == nil && email == nil {
			if user, err = c.Me(cmd.Context()); err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}
		} else {
			if user, err = c.UpdateProfile(cmd.Context(), name, email); err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			output.Success("Profile updated")
		}

		return render(cmd, user, func() {
			output.Info("Name:  %s", user.Name)
			output.Info("Email: %s", user.Email)
			output.Info("Role:  %s", user.Role)
		})
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change your password",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		current, _ := cmd.Flags().GetString("current")
		next, _ := cmd.Flags().GetString("new")
		if err := c.ChangePassword(cmd.Context(), current, next); err != nil {
			return fmt.Errorf("failed to change password: %w", err)
		}

		output.Success("Password updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(passwordCmd)

	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Password")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")

	signupCmd.Flags().StringP("name", "n", "", "Display name")
	signupCmd.Flags().StringP("email", "e", "", "Account email")
	signupCmd.Flags().StringP("password", "p", "", "Password (at least 8 characters)")
	signupCmd.MarkFlagRequired("name")
	signupCmd.MarkFlagRequired("email")
	signupCmd.MarkFlagRequired("password")

	profileCmd.Flags().String("name", "", "New display name")
	profileCmd.Flags().String("email", "", "New account email")

	passwordCmd.Flags().String("current", "", "Current password")
	passwordCmd.Flags().String("new", "", "New password (at least 8 characters)")
	passwordCmd.MarkFlagRequired("current")
	passwordCmd.MarkFlagRequired("new")
}
