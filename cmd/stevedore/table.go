package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/harborlabs/stevedore/internal/record"
	"github.com/harborlabs/stevedore/internal/report"
)

// renderReport prints the run summary and the per-file outcome table.
func renderReport(snap report.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s / stage %s\n", snap.RunID, snap.Stage)
	fmt.Fprintf(&b, "Files: %d selected of %d (%d uploaded, %d processed, %d ingested, %d failed)\n\n",
		snap.Summary.SelectedFiles, snap.Summary.TotalFiles,
		snap.Summary.Uploaded, snap.Summary.Processed,
		snap.Summary.IngestedSuccess, snap.Summary.IngestedFailed)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Type", "Class", "Ingestion", "Detail"})
	for _, f := range snap.Files {
		tw.AppendRow(table.Row{f.Name, f.TypeTag, string(f.Classification), ingestionCell(f), detailCell(f)})
	}
	b.WriteString(tw.Render())

	return b.String()
}

func ingestionCell(f record.FileRecord) string {
	if f.IngestionStatus == "" {
		return "-"
	}
	return string(f.IngestionStatus)
}

func detailCell(f record.FileRecord) string {
	if f.LastError != "" {
		return f.LastError
	}
	var parts []string
	for _, d := range f.IngestionDetails {
		switch d.Type {
		case record.DetailStructured:
			rows := 0
			for _, t := range d.Tables {
				rows += t.RowsInserted
			}
			parts = append(parts, fmt.Sprintf("%d table(s), %d row(s)", len(d.Tables), rows))
		case record.DetailUnstructured:
			parts = append(parts, fmt.Sprintf("%d chunk(s) in %s", d.ChunksCreated, d.Collection))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
