package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("guidebot %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Println()

		if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
			fmt.Println("TELEGRAM_BOT_TOKEN: configured")
		} else {
			fmt.Println("TELEGRAM_BOT_TOKEN: not set (required)")
		}
		if os.Getenv("GEMINI_API_KEY") != "" {
			fmt.Println("GEMINI_API_KEY: configured")
		} else {
			fmt.Println("GEMINI_API_KEY: not set (AI features disabled)")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
