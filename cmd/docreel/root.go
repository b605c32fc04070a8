package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docreel",
	Short: "docreel turns documents into short-form videos",
	Long: `docreel runs a document through ingestion, story design, and video
production. Use "run" for a one-shot conversion or "serve" to accept
jobs over HTTP.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}
