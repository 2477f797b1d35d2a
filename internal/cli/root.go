// Package cli 实现 chatctl 命令行客户端
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const AppName = "chatctl"

func defaultServer() string {
	if v := os.Getenv("LEADCHAT_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func defaultSessionFile() string {
	if v := os.Getenv("LEADCHAT_SESSION_FILE"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".leadchat-session.json"
	}
	return filepath.Join(dir, "leadchat", "session.json")
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Command line client for lead chat",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("server", defaultServer(), "lead chat server base url")
	cmd.PersistentFlags().String("session-file", defaultSessionFile(), "where the login session is stored")

	cmd.AddCommand(
		NewLoginCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewLeadsCmd(),
		NewMessagesCmd(),
		NewTailCmd(),
		NewSendCmd(),
		NewEditCmd(),
		NewDeleteCmd(),
		NewUploadCmd(),
		NewURLCmd(),
		NewMentionsCmd(),
	)
	return cmd
}
