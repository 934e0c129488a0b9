package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "altenheim-avatar"

var rootCmd = &cobra.Command{
	Use:           serviceName,
	Short:         "Conversational companion backend for care facilities",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newHashPINCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
