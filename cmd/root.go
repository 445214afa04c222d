// Package cmd contains the CLI entry points for the bot's run modes.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guidebot",
	Short: "Telegram AI guide bot backed by Gemini",
	Long: `A conversational Telegram bot that relays user messages to Gemini
while keeping per-user conversation history for the process lifetime.

Run modes:
  poll     pull updates with a long-polling loop (default)
  webhook  receive updates pushed to an HTTP endpoint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Polling is the default mode when invoked without a subcommand.
		return runPoll(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
