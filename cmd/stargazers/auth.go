package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stargazers/pkg/auth"
	"stargazers/pkg/ui"
)

var tokenName string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored GitHub token",
	Long: `Store a GitHub personal access token so runs are authenticated without
passing --token or exporting GITHUB_PERSONAL_ACCESS_TOKEN.

Tokens are stored in:
  - The system keychain, when available
  - An encrypted file keyed by STARGAZERS_PASSPHRASE or a generated passphrase`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a personal access token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which token will be used",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	authCmd.PersistentFlags().StringVar(&tokenName, "name", auth.DefaultTokenName, "token profile name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	value := tokenFlag
	if value == "" {
		fmt.Fprintln(cmd.OutOrStdout(), auth.TokenInstructions)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s ", ui.Cyan("Token:"))
		value, err = readSecret(os.Stdin, bufio.NewReader(os.Stdin), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}
	if value == "" {
		return auth.ErrInvalidToken
	}

	source, err := manager.Save(&auth.Token{Name: tokenName, Value: value})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token %s stored in %s", auth.Mask(value), source))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	if err := manager.Delete(tokenName); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			ui.PrintWarning("No stored token named " + tokenName)
			return nil
		}
		return err
	}

	ui.PrintSuccess("Token removed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	token, source, err := manager.Load(tokenName)
	if errors.Is(err, auth.ErrTokenNotFound) {
		ui.PrintWarning("Not authenticated, requests are limited to 60 per hour")
		ui.PrintInfo("Login", "stargazers auth login")
		return nil
	}
	if err != nil {
		return err
	}

	ui.PrintSuccess("Authenticated")
	ui.PrintInfo("Token", auth.Mask(token.Value))
	ui.PrintInfo("Source", source)
	if source != "environment" {
		ui.PrintInfo("Stored", humanize.Time(token.LastModified))
	}
	return nil
}
