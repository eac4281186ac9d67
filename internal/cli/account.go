package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account and session commands",
	}

	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountGuestCmd())
	cmd.AddCommand(newAccountMeCmd())
	cmd.AddCommand(newAccountLogoutCmd())

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var identity, secret string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate an identity (first login creates the account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"identity": identity,
				"secret":   secret,
			}
			var result AuthResult

			if err := client.Post("/api/v1/auth/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity, typically an email address (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "Secret (required)")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newAccountGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Create a guest session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AuthResult

			if err := client.Post("/api/v1/auth/guest", nil, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Account

			if err := client.Get("/api/v1/accounts/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAccountLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/auth/logout", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}
}
