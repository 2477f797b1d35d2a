package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			leads, err := e.client.ListLeads(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(leads) == 0 {
				fmt.Fprintln(out, "No leads")
				return nil
			}
			now := time.Now()
			for _, lead := range leads {
				fmt.Fprintf(out, "%d\t%s\tcreated %s\n", lead.ID, lead.Name, humanize.RelTime(lead.CreatedAt, now, "ago", "from now"))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of leads")
	cmd.Flags().Int("offset", 0, "number of leads to skip")

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a lead",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			lead, err := e.client.CreateLead(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lead %d: %s\n", lead.ID, lead.Name)
			return nil
		},
	})
	return cmd
}
