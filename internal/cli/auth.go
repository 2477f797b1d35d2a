package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, false)
			if err != nil {
				return err
			}
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				return errors.New("--password is required")
			}

			s, err := e.client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if err := e.sessions.Set(s); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Logged in as %s\n", s.User.Name)
			} else {
				fmt.Fprintf(out, "Logged in as %s, session expires %s\n", s.User.Name, humanize.RelTime(s.ExpiresAt, time.Now(), "ago", "from now"))
			}
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "account password")
	return cmd
}

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, false)
			if err != nil {
				return err
			}
			if err := e.sessions.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			user, err := e.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) id=%d\n", user.Name, user.Username, user.ID)
			return nil
		},
	}
}
