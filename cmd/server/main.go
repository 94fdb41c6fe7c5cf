package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "socialconnect",
	Short: "Social account connection and publishing service",
	Long: `socialconnect links user accounts on Facebook, Instagram and LinkedIn
through OAuth, stores their credentials and publishes posts on their behalf.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
