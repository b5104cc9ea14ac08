package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-generator/internal/server"
)

var tokenOperator string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token for the mutating API routes",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "", "Operator name recorded in the token subject (required)")
	_ = tokenCmd.MarkFlagRequired("operator")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	auth, err := cfg.Auth()
	if err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}
	if auth == nil {
		return fmt.Errorf("auth is not configured: set AUTH_SECRET or auth_secret")
	}

	token, err := server.NewTokenService(auth).GenerateToken(tokenOperator)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token) //nolint:errcheck
	return nil
}
