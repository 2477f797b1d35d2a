package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lead-chat/internal/model"

	"github.com/spf13/cobra"
)

func NewMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <lead-id>",
		Short: "Print the message history of a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseID(args[0], "lead id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			messages, err := e.client.FetchMessages(cmd.Context(), leadID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "No messages yet")
				return nil
			}
			now := time.Now()
			for _, m := range messages {
				printMessage(out, m, now)
			}
			return nil
		},
	}
}

// NewTailCmd 打印历史后持续输出新消息, 直到被中断
func NewTailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail <lead-id>",
		Short: "Follow a lead's chat in real time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseID(args[0], "lead id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			changes := make(chan struct{}, 1)
			panel, err := e.openPanel(ctx, cmd, leadID, func() {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
			if err != nil {
				return err
			}
			defer panel.Close()

			out := cmd.OutOrStdout()
			printed := make(map[string]struct{})
			flush := func() {
				now := time.Now()
				current := make(map[string]struct{})
				for _, m := range panel.Messages() {
					current[m.ID] = struct{}{}
					if _, ok := printed[m.ID]; ok {
						continue
					}
					printed[m.ID] = struct{}{}
					printMessage(out, m, now)
				}
				for id := range printed {
					if _, ok := current[id]; !ok {
						delete(printed, id)
						fmt.Fprintf(out, "[%s] deleted\n", id)
					}
				}
			}

			flush()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changes:
					flush()
				}
			}
		},
	}
}

func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <lead-id> <message>",
		Short: "Send a message, @name mentions notify teammates",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseID(args[0], "lead id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			panel, err := e.openPanel(ctx, cmd, leadID, nil)
			if err != nil {
				return err
			}
			defer panel.Close()

			paths, _ := cmd.Flags().GetStringSlice("attach")
			attachments := make([]model.Attachment, 0, len(paths))
			for _, path := range paths {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				att, err := panel.Upload(ctx, filepath.Base(path), f)
				f.Close()
				if err != nil {
					return err
				}
				attachments = append(attachments, *att)
			}

			sent, err := panel.Send(ctx, strings.Join(args[1:], " "), attachments)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", sent.ID)
			return nil
		},
	}
	cmd.Flags().StringSlice("attach", nil, "file to attach (repeatable)")
	return cmd
}

func NewEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <lead-id> <message-id> <message>",
		Short: "Edit a message you sent",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := parseID(args[0], "lead id")
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			panel, err := e.openPanel(cmd.Context(), cmd, leadID, nil)
			if err != nil {
				return err
			}
			defer panel.Close()

			updated, err := panel.Edit(cmd.Context(), args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited %s\n", updated.ID)
			return nil
		},
	}
}

func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lead-id> <message-id>",
		Short: "Delete a message you sent",
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
			panel, err := e.openPanel(cmd.Context(), cmd, leadID, nil)
			if err != nil {
				return err
			}
			defer panel.Close()

			if err := panel.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[1])
			return nil
		},
	}
}
