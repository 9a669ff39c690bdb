package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/noah-isme/sma-class-scheduler/internal/scenario"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

var (
	colorHeader   = color.New(color.Bold)
	colorNormal   = color.New(color.FgGreen)
	colorSkipped  = color.New(color.FgYellow)
	colorExtended = color.New(color.FgCyan, color.Bold)
	colorLocked   = color.New(color.FgRed)
	colorMuted    = color.New(color.FgWhite, color.Faint)
)

func sessionColor(kind scheduling.SessionType) *color.Color {
	switch kind {
	case scheduling.SessionSkipped:
		return colorSkipped
	case scheduling.SessionExtended:
		return colorExtended
	default:
		return colorNormal
	}
}

func title(plan *scenario.Plan) string {
	if plan.Name != "" {
		return plan.Name
	}
	return "scenario"
}

func printSessions(w io.Writer, plan *scenario.Plan, result scheduling.SessionPlan) {
	colorHeader.Fprintf(w, "%s: %d sessions from %s\n\n", title(plan), plan.TotalSessions, scheduling.FormatDate(plan.StartDate))
	colorHeader.Fprintf(w, "%-4s %-10s %-9s %-10s %-11s %s\n", "#", "DATE", "DAY", "TIMESLOT", "TIME", "TYPE")
	for _, s := range result.Sessions {
		row := fmt.Sprintf("%-4d %-10s %-9s %-10s %-11s %s",
			s.SequenceNumber,
			scheduling.FormatDate(s.Date),
			s.Weekday,
			s.TimeslotID,
			s.StartTime+"-"+s.EndTime,
			s.Type,
		)
		sessionColor(s.Type).Fprintln(w, row)
	}
	fmt.Fprintln(w)
	colorMuted.Fprintf(w, "normal %d, skipped %d, extended %d, ends before %s\n",
		result.Normal, result.Skipped, result.Extended, scheduling.FormatDate(result.EndDate))
	if result.Exhausted {
		colorLocked.Fprintln(w, "warning: not every skipped session could be made up")
	}
}

func printGrid(w io.Writer, plan *scenario.Plan, grid scheduling.SlotGrid) {
	colorHeader.Fprintf(w, "%s: availability from %s\n\n", title(plan), scheduling.FormatDate(plan.StartDate))
	colorHeader.Fprintf(w, "%-9s %-10s %-9s %-24s %s\n", "DAY", "TIMESLOT", "STATUS", "REASON", "BUSY")
	for _, v := range grid {
		row := fmt.Sprintf("%-9s %-10s %-9s %-24s %d", v.Weekday, v.TimeslotID, v.Status, v.Reason, v.BusyCount)
		if v.Available() {
			colorNormal.Fprintln(w, row)
			continue
		}
		colorLocked.Fprintln(w, row)
	}
	fmt.Fprintln(w)
	colorMuted.Fprintf(w, "%d of %d slots available\n", grid.AvailableCount(), len(grid))
}

func printAlternatives(w io.Writer, plan *scenario.Plan, result scheduling.AlternativeResult) {
	colorHeader.Fprintf(w, "%s: alternatives to %s\n\n", title(plan), scheduling.FormatDate(plan.StartDate))
	if !result.Found() {
		colorLocked.Fprintf(w, "no free start date within %d weeks\n", result.WeeksScanned)
		return
	}
	colorHeader.Fprintf(w, "%-10s %s\n", "START", "END")
	for _, d := range result.Dates {
		colorNormal.Fprintf(w, "%-10s %s\n", scheduling.FormatDate(d.StartDate), scheduling.FormatDate(d.EndDate))
	}
	fmt.Fprintln(w)
	colorMuted.Fprintf(w, "%d weeks scanned\n", result.WeeksScanned)
}
