package main

import (
	"fmt"

	"github.com/fwojciec/refinery"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := refinery.RecordFilter{Limit: c.Limit, Offset: c.Offset}
	if c.Date != "" {
		filter.Date = &c.Date
	}
	if c.URL != "" {
		filter.URL = &c.URL
	}

	records, err := deps.Records.FindRecords(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refinery.ErrorMessage(err))
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(deps.Stdout, "No records found. Use 'refinery run' to publish some.")
		return nil
	}

	for _, r := range records {
		date := r.Key.Date
		if date == "" {
			date = "undated"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s\n",
			r.ID, date, refinery.Value(r.Record.Title), refinery.Value(r.Record.SourceURL))
	}

	return nil
}
