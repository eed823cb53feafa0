package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/jobs"
)

// Job commands talk to the queue directly, so they only need Redis. They are
// still limited to administrators signed in through this tool.
func newJobsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.AddCommand(newJobsTriggerCmd(c), newJobsStatsCmd(c), newJobsListCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List job names accepted by trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range jobs.TaskNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newJobsTriggerCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "trigger NAME",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.TaskNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireRole(api.RoleAdmin); err != nil {
				return err
			}
			client := jobs.NewClient(c.cfg.Redis().AsynqOpt())
			defer client.Close()
			info, err := client.Trigger(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, jobs.ErrUnknownTask) {
					return fmt.Errorf("%w (known: %s)", err, strings.Join(jobs.TaskNames(), ", "))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
}

func newJobsStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireRole(api.RoleAdmin); err != nil {
				return err
			}
			inspector := asynq.NewInspector(c.cfg.Redis().AsynqOpt())
			defer inspector.Close()
			stats, err := jobs.Stats(inspector)
			if err != nil {
				return err
			}
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), stats)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tPROCESSED\tFAILED")
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active,
				stats.Scheduled, stats.Retry, stats.Archived, stats.Processed, stats.Failed)
			return tw.Flush()
		},
	}
}
