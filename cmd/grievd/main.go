package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "grievd",
	Short: "Citizen grievance portal: conversational complaint filing, tracking, and triage",
	Long: `grievd runs the grievance portal server and talks to it from the
command line.

The server exposes a conversational chat API for filing and tracking
complaints, a web-form submission endpoint, admin endpoints for triage,
and an MCP endpoint for agent clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(complaintsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the grievd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grievd version %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
