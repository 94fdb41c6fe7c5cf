package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikelady/socialconnect/internal/auth"
	"github.com/mikelady/socialconnect/internal/config"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <user-id>",
	Short: "Print a bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssueToken,
}

func init() {
	issueTokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	ttl, err := cmd.Flags().GetDuration("ttl")
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return fmt.Errorf("issue-token is disabled in production")
	}

	v, err := auth.NewValidator([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	token, err := v.IssueToken(args[0], ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
