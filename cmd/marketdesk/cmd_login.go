package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HerbHall/marketdesk/internal/apiclient"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the API token",
	Long: `Log in with an admin account and write the token to api.token_file.
The password may also be given in MARKETDESK_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("MARKETDESK_PASSWORD")
		}
		if loginEmail == "" || password == "" {
			return errors.New("--email and --password are required")
		}

		tokens := apiclient.NewFileToken(settings.API.TokenFile)
		client, err := newClient(apiclient.NewStaticToken(""))
		if err != nil {
			return err
		}
		token, err := client.Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		if err := tokens.Save(token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (token saved to %s)\n", loginEmail, tokens.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens := apiclient.NewFileToken(settings.API.TokenFile)
		tokens.Invalidate()
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", tokens.Path())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "admin email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "admin password")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
