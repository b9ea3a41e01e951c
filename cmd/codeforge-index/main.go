// cmd/codeforge-index/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codeforge-index",
	Short: "Codebase indexing and retrieval",
	Long:  `Build and query a dense-vector semantic index and typed graph index of a codebase.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("codeforge-index v0.1.0")
	},
}

var globalConfigPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "config", "", "Config file path (defaults to ~/.config/codeforge-index/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func getGlobalConfigPath() string {
	if globalConfigPath != "" {
		return globalConfigPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "codeforge-index", "config.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
