package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "verifyctl",
		Short:         "Verify match screenshots and arbitrate results offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createCompareCmd())
	rootCmd.AddCommand(createProfilesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
