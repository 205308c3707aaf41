package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
)

type deadlineOutput struct {
	Trigger       string          `json:"trigger"`
	OffsetDays    int             `json:"offset_days"`
	Due           string          `json:"due"`
	DaysRemaining int             `json:"days_remaining"`
	Status        deadline.Status `json:"status"`
	Task          string          `json:"task,omitempty"`
}

func newDeadlineCmd(opts *rootOptions) *cobra.Command {
	var (
		trigger string
		offset  int
		asOf    string
		area    string
		taskID  string
	)
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Compute a calendar-day deadline and classify it.",
		Long:  `Adds --offset calendar days to --trigger. With --area and --task the offset comes from the catalogue task's deadline rule instead.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if taskID != "" {
				cat, err := opts.loadCatalogue()
				if err != nil {
					return err
				}
				task, err := cat.LookupTask(area, taskID)
				if err != nil {
					return err
				}
				if task.Deadline == nil || !task.Deadline.Computable() {
					return fmt.Errorf("%w: task %q has no computable deadline", ruleerr.ErrInvalidInput, taskID)
				}
				offset = *task.Deadline.OffsetDays
			} else if !cmd.Flags().Changed("offset") {
				return fmt.Errorf("%w: --offset or --task is required", ruleerr.ErrInvalidInput)
			}

			trig, err := deadline.ParseDate(trigger)
			if err != nil {
				return err
			}
			now := opts.now()
			if asOf != "" {
				if now, err = deadline.ParseDate(asOf); err != nil {
					return err
				}
			}
			ev, err := deadline.Evaluate(trig, offset, now)
			if err != nil {
				return err
			}

			out := deadlineOutput{
				Trigger:       ev.Trigger.Format(deadline.DateLayout),
				OffsetDays:    ev.OffsetDays,
				Due:           ev.Due.Format(deadline.DateLayout),
				DaysRemaining: ev.DaysRemaining,
				Status:        ev.Status,
				Task:          taskID,
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return writeTable(cmd.OutOrStdout(), [][]string{
				{"TRIGGER", "OFFSET", "DUE", "DAYS", "STATUS"},
				{out.Trigger, strconv.Itoa(out.OffsetDays), out.Due, strconv.Itoa(out.DaysRemaining), string(out.Status)},
			})
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "", "Trigger date (YYYY-MM-DD).")
	cmd.Flags().IntVar(&offset, "offset", 0, "Calendar days after the trigger.")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD); defaults to now.")
	cmd.Flags().StringVar(&area, "area", "", "Practice area of --task.")
	cmd.Flags().StringVar(&taskID, "task", "", "Catalogue task whose deadline rule supplies the offset.")
	_ = cmd.MarkFlagRequired("trigger")
	cmd.MarkFlagsRequiredTogether("area", "task")
	cmd.MarkFlagsMutuallyExclusive("offset", "task")
	return cmd
}

func newBracketCmd(opts *rootOptions) *cobra.Command {
	var (
		area   string
		table  string
		amount string
	)
	cmd := &cobra.Command{
		Use:   "bracket",
		Short: "Apply a catalogue bracket table to an amount.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: amount %q is not a number", ruleerr.ErrInvalidInput, amount)
			}
			cat, err := opts.loadCatalogue()
			if err != nil {
				return err
			}
			bt, err := cat.LookupBracketTable(area, table)
			if err != nil {
				return err
			}
			res, err := tiered.ApplyBracketTable(bt, amt)
			if err != nil {
				return err
			}
			res.Computed = tiered.RoundCents(res.Computed)

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			upper := "-"
			if res.Max != nil {
				upper = res.Max.String()
			}
			return writeTable(cmd.OutOrStdout(), [][]string{
				{"TABLE", "BRACKET", "MIN", "MAX", "RATE", "AMOUNT", "COMPUTED"},
				{bt.Name, strconv.Itoa(res.Index), res.Min.String(), upper, res.Rate.String(), res.Amount.String(), res.Computed.StringFixed(2)},
			})
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "Practice area id.")
	cmd.Flags().StringVar(&table, "table", "", "Bracket table name (e.g. mansion_tax_tiers).")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to look up.")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
