package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fpang/asset-labeler/internal/pipeline"
	"github.com/fpang/asset-labeler/internal/searchindex"
	"github.com/fpang/asset-labeler/internal/store"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintSummary writes the tallies of a batch run followed by every asset
// that was not indexed.
func PrintSummary(w io.Writer, s *pipeline.Summary) {
	fmt.Fprintf(w, "Run %s (%s/%s, %s) in %s\n", s.RunID, s.SpaceID, s.EnvironmentID, s.Mode,
		FormatDurationShort(s.FinishedAt.Sub(s.StartedAt)))
	fmt.Fprintf(w, "  listed %d, indexed %d, no url %d, too large %d, failed %d\n",
		s.Listed(), s.Indexed, s.SkippedNoURL, s.SkippedTooLarge, s.Failed)
	if s.Aborted != "" {
		fmt.Fprintf(w, "  aborted: %s\n", s.Aborted)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := false
	for _, o := range s.Outcomes {
		if o.Status == pipeline.StatusIndexed {
			continue
		}
		if !header {
			fmt.Fprintln(tw, "\nASSET\tSTATUS\tERROR")
			header = true
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.AssetID, o.Status, o.Error)
	}
	tw.Flush()
}

// PrintRecords writes search hits as a table of object ID, thumbnail and
// label names.
func PrintRecords(w io.Writer, records []searchindex.IndexRecord, thumbWidth int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No matches")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OBJECT\tTHUMBNAIL\tLABELS")
	for _, r := range records {
		names := make([]string, len(r.Labels))
		for i, l := range r.Labels {
			names[i] = l.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ObjectID, searchindex.ThumbnailURL(r.ThumbURL, thumbWidth), strings.Join(names, ", "))
	}
	tw.Flush()
}

// PrintRun writes a stored run record and its non-indexed assets.
func PrintRun(w io.Writer, run *store.RunRecord, assets []store.AssetRecord) {
	started := time.Unix(run.StartedAt, 0)
	finished := time.Unix(run.FinishedAt, 0)
	fmt.Fprintf(w, "Run %s (%s/%s, %s) started %s, took %s\n", run.RunID, run.SpaceID, run.EnvironmentID, run.Mode,
		started.UTC().Format(time.RFC3339), FormatDurationShort(finished.Sub(started)))
	fmt.Fprintf(w, "  listed %d, indexed %d, no url %d, too large %d, failed %d\n",
		run.Listed, run.Indexed, run.SkippedNoURL, run.SkippedTooLarge, run.Failed)
	if run.Aborted != "" {
		fmt.Fprintf(w, "  aborted: %s\n", run.Aborted)
	}
	if len(assets) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nASSET\tSTATUS\tERROR")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.AssetID, a.Status, a.Error)
	}
	tw.Flush()
}
