package main

import (
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/spf13/cobra"
)

func (a *app) registerCmd() *cobra.Command {
	var req merchantapi.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a merchant account and print its API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			merchant, err := a.session.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(merchant)
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Merchant email")
	cmd.Flags().StringVar(&req.CompanyName, "company", "", "Company name")
	cmd.Flags().StringVar(&req.WebhookURL, "webhook-url", "", "URL webhook events are delivered to")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, apiKey string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			merchant, err := a.session.Login(cmd.Context(), email, apiKey)
			if err != nil {
				return err
			}
			return a.print(merchant)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Merchant email")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Merchant API key")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Logout(cmd.Context())
			return a.print(map[string]string{"state": a.session.State().String()})
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged in merchant",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			return a.print(a.session.Identity())
		},
	}
}

func (a *app) rotateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-key",
		Short: "Issue a new API key; the old one stops working",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			merchant, err := a.session.RefreshAPIKey(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(merchant)
		},
	}
}

func (a *app) deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate the merchant account and log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Deactivate(cmd.Context()); err != nil {
				return err
			}
			return a.print(map[string]string{"state": a.session.State().String()})
		},
	}
}
