// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/state"
)

// WriteTally renders the view-state as a plain-text table
func WriteTally(w io.Writer, st state.State, now time.Time) error {
	if st.Loading {
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	}
	if st.Poll == nil {
		_, err := fmt.Fprintln(w, "No active poll")
		return err
	}

	header := fmt.Sprintf("%s [%s]", st.Poll.Title, st.Poll.Period)
	if !st.Poll.CreatedAt.IsZero() {
		header += ", opened " + humanize.RelTime(st.Poll.CreatedAt, now, "ago", "from now")
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, opt := range st.Options {
		marker := ""
		if opt.ID == st.UserVote {
			marker = "your vote"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t\n",
			opt.Name, humanize.Comma(int64(st.Counts[opt.ID])), st.Percentages[opt.ID], marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	footer := english.Plural(st.Total, "vote", "")
	if st.CountsLoading {
		footer = "counts loading"
	}
	if _, err := fmt.Fprintln(w, footer); err != nil {
		return err
	}

	if st.Status == models.StatusError && st.Error != "" {
		if _, err := fmt.Fprintf(w, "error: %s\n", st.Error); err != nil {
			return err
		}
	}
	return nil
}
