package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewMentionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentions",
		Short: "List unread mentions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			mentions, err := e.client.UnreadMentions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mentions) == 0 {
				fmt.Fprintln(out, "No unread mentions")
				return nil
			}
			now := time.Now()
			for _, m := range mentions {
				fmt.Fprintf(out, "%d\tmessage %s\t%s\n", m.ID, m.MessageID, humanize.RelTime(m.CreatedAt, now, "ago", "from now"))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "read <mention-id>",
		Short: "Mark a mention as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "mention id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			if err := e.client.MarkMentionRead(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked mention %d as read\n", id)
			return nil
		},
	})
	return cmd
}
