package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/schedule"
)

// Output helpers

// printJSON outputs data as formatted JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError prints an error message, with the offending milestones for
// schedule errors.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", colorRed("Error:"), err.Error())

	var orderErr *schedule.OrderError
	if errors.As(err, &orderErr) {
		for i, ts := range orderErr.Schedule.Times() {
			fmt.Fprintf(w, "  %-7s %s\n", milestoneLabels[i], ts.Format(time.RFC3339))
		}
	}
}

var milestoneLabels = [4]string{"start", "stage2", "stage3", "end"}

// newTable creates a new tabwriter for formatted output.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printTableHeader prints a bold header row.
func printTableHeader(w *tabwriter.Writer, columns ...string) {
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, colorBold(col))
	}
	fmt.Fprintln(w)
}

// printSchedule writes the four milestones, one per line.
func printSchedule(w io.Writer, s schedule.Schedule) {
	for i, ts := range s.Times() {
		fmt.Fprintf(w, "  %-7s %d  %s\n", milestoneLabels[i], s.Milestones()[i], ts.Format(time.RFC3339))
	}
}

// parseTime accepts RFC3339 or unix seconds.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or unix seconds", s)
	}
	return t, nil
}

// parseRate accepts a wei amount, optionally with a unit ("5000 ether").
func parseRate(s string) (*big.Int, error) {
	rate, err := config.ParseWei(s)
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}
	return rate, nil
}

// Terminal colors, disabled when stdout is not a terminal.

func colorize(code, s string) string {
	if !isTTY() {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func colorRed(s string) string    { return colorize("31", s) }
func colorGreen(s string) string  { return colorize("32", s) }
func colorYellow(s string) string { return colorize("33", s) }
func colorBold(s string) string   { return colorize("1", s) }

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
