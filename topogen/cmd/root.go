// Package cmd provides the command-line interface of topogen.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "topogen",
	Short: "Topogen assembles MESI three-level cache coherence topologies.",
	Long: `Topogen assembles MESI three-level cache coherence topologies ` +
		`from a YAML config. It can record the result in SQLite, write a ` +
		`sysfs cache description, and serve the topology for browsing.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", ".env",
		"file with MESITOPO_* defaults for the flags that are not set")
}

// loadEnvFile adds the variables of a .env file to the environment. A missing
// file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
