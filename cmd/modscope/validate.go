package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured API credential",
	Long: `Validate the configured API credential against the registry.

Exits 0 when the credential is accepted, 1 otherwise.

Examples:
  MODSCOPE_API_KEY=... modscope validate`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := commandContext(cmd)
	defer stop()

	valid, err := application.client.ValidateCredential(ctx)
	if err != nil {
		return fmt.Errorf("validating credential: %w", err)
	}
	if !valid {
		return fmt.Errorf("credential rejected by the registry")
	}

	if jsonOutput {
		return printResult(map[string]bool{"valid": true})
	}
	fmt.Println("Credential is valid.")
	return nil
}
