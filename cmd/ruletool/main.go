package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/infrastructure/yamlsource"
	catalogueservices "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/services"
)

type rootOptions struct {
	cataloguePath string
	jsonOut       bool
	now           func() time.Time
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := newRootCmd(func() time.Time { return time.Now().UTC() }).Execute(); err != nil {
		slog.Error("ruletool failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(now func() time.Time) *cobra.Command {
	opts := &rootOptions{now: now}
	root := &cobra.Command{
		Use:           "ruletool",
		Short:         "Inspect the NY statutory rule catalogue and run deadline calculations.",
		Long:          `ruletool reads the embedded practice-area catalogue (or a draft file passed with --catalogue), lints it, runs the deadline and bracket calculators, and manages the task instance database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cataloguePath, "catalogue", "", "Path to a catalogue YAML file (defaults to the embedded catalogue).")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of a table.")

	root.AddCommand(
		newAreasCmd(opts),
		newTasksCmd(opts),
		newLintCmd(opts),
		newDeadlineCmd(opts),
		newBracketCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func (o *rootOptions) loadCatalogue() (*catalogueservices.Catalogue, error) {
	if o.cataloguePath == "" {
		return catalogueservices.LoadDefault()
	}
	raw, err := os.ReadFile(o.cataloguePath)
	if err != nil {
		return nil, fmt.Errorf("could not read catalogue '%s': %w", o.cataloguePath, err)
	}
	doc, err := yamlsource.Parse(raw)
	if err != nil {
		return nil, err
	}
	return catalogueservices.New(doc.Version, doc.Areas)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints rows as aligned columns; the first row is the header.
func writeTable(out io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
