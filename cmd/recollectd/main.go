package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recollect-labs/recollect/internal/cli"
	"github.com/recollect-labs/recollect/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recollectd",
		Short: "Recollect daemon and CLI",
		Long:  "Recollect daemon for running the API server and managing users and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.RepopulateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
