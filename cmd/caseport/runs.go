package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseport/internal/app"
	"caseport/internal/domain"
	"caseport/internal/repo"
)

func runsCmd() *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the conversion journal",
	}
	runs.AddCommand(runsListCmd())
	runs.AddCommand(runsShowCmd())
	runs.AddCommand(runsEventsCmd())
	return runs
}

func runsListCmd() *cobra.Command {
	var n int
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(func(ws *app.Workspace) error {
				items, err := ws.Engine.Repo.ListRuns(cmd.Context(), repo.RunFilters{Status: status, Limit: n})
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of runs")
	cmd.Flags().StringVar(&status, "status", "", "status filter (running, succeeded, failed)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(func(ws *app.Workspace) error {
				run, err := ws.Engine.Repo.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), run)
			})
		},
	}
}

func runsEventsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "events <run-id>",
		Short: "List the events of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(func(ws *app.Workspace) error {
				ctx := cmd.Context()
				if _, err := ws.Engine.Repo.GetRun(ctx, args[0]); err != nil {
					return err
				}
				items, err := ws.Engine.Repo.RunEvents(ctx, args[0], 0, n)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if viper.GetBool("json") {
					if items == nil {
						items = []domain.Event{}
					}
					return printJSON(out, items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"#", "Time", "Type", "Subject", "Payload"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.Subject, compactJSON(evt.Payload)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 100, "number of events")
	return cmd
}

func compactJSON(raw string) string {
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil || len(v) == 0 {
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}
