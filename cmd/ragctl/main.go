// Package main implements ragctl, a CLI for manual operations against the
// ragchat HTTP server.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)
	cl := &client{}

	root := &cobra.Command{
		Use:   "ragctl",
		Short: "CLI for ragchat server operations",
		Long: `ragctl is a command-line interface for the ragchat HTTP server.
It manages apps and their documents, triggers training and chats with a
trained app.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.configure(serverURL, timeout)
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("RAGCHAT_URL", "http://localhost:8000"), "ragchat server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout (training can be slow)")

	root.AddCommand(
		newHealthCmd(cl),
		newAppsCmd(cl),
		newFilesCmd(cl),
		newTrainCmd(cl),
		newChatCmd(cl),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
