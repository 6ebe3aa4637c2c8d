package tui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/leonardotrapani/webtranscriber/internal/session"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/olekukonko/tablewriter"
)

// WriteSummary prints the outcome of a session as a table. urls maps the
// requested formats to their download links.
func WriteSummary(w io.Writer, snap session.Snapshot, urls map[subtitle.Format]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	table.Append([]string{"File", filepath.Base(snap.File)})
	table.Append([]string{"State", string(snap.State)})
	if r := snap.Result; r != nil {
		table.Append([]string{"Status", string(r.Status)})
		table.Append([]string{"Lines", fmt.Sprintf("%d", r.Lines)})
		table.Append([]string{"Dropped", fmt.Sprintf("%d", r.Dropped)})
		table.Append([]string{"Chunks", fmt.Sprintf("%d", r.Chunks)})
		if r.Err != nil {
			table.Append([]string{"Error", r.Err.Error()})
		}
	} else {
		table.Append([]string{"Lines", fmt.Sprintf("%d", len(snap.Lines))})
	}
	if snap.JobID != "" {
		table.Append([]string{"Job ID", snap.JobID})
	}
	for _, f := range subtitle.Formats {
		if u, ok := urls[f]; ok {
			table.Append([]string{string(f), u})
		}
	}

	table.Render()
}
