package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"lead-chat/internal/leadchat"
	"lead-chat/internal/model"

	"github.com/spf13/cobra"
)

func NewUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <lead-id> <file>",
		Short: "Upload a file and print its storage path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseID(args[0], "lead id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			att, err := e.client.UploadAttachment(cmd.Context(), leadID, filepath.Base(args[1]), f)
			if err != nil {
				return &leadchat.StorageError{Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", att.Path, leadchat.FormatFileSize(att.Size), att.Type)
			return nil
		},
	}
}

// NewURLCmd 地址只在短时间内有效, 每次都重新申请
func NewURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <path>",
		Short: "Print a short-lived download url for an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			url, err := leadchat.DownloadURL(cmd.Context(), e.client, model.Attachment{Path: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
