package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/goliatone/go-saved/bridge"
	"github.com/goliatone/go-saved/core"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxTitleWidth = 72

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderItems(items []core.SavedItem) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		nsfw := ""
		if item.Over18 {
			nsfw = "nsfw"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(item.Kind),
			"r/" + item.Subreddit,
			"u/" + item.Author,
			text.Trim(item.Title, maxTitleWidth),
			nsfw,
			time.Unix(int64(item.CreatedUTC), 0).UTC().Format("2006-01-02"),
		})
	}
	return renderTable(
		[]string{"#", "Kind", "Subreddit", "Author", "Title", "", "Created"},
		rows,
		[]columnAlignment{alignRight},
	)
}

// pageOutput is the --json shape of one page.
type pageOutput struct {
	Items   []core.SavedItem `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	Dropped int              `json:"dropped,omitempty"`
}

func writePage(w io.Writer, event bridge.Event, asJSON bool) error {
	if asJSON {
		items := event.Items
		if items == nil {
			items = []core.SavedItem{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(pageOutput{Items: items, Cursor: event.Cursor, Dropped: event.Dropped})
	}

	if len(event.Items) == 0 {
		fmt.Fprintln(w, "No saved items.")
	} else {
		fmt.Fprintln(w, renderItems(event.Items))
	}
	var notes []string
	if event.Dropped > 0 {
		notes = append(notes, fmt.Sprintf("%d malformed item(s) skipped", event.Dropped))
	}
	if event.Cursor != "" {
		notes = append(notes, "next page: saved page --cursor "+event.Cursor)
	}
	if len(notes) > 0 {
		fmt.Fprintln(w, strings.Join(notes, "\n"))
	}
	return nil
}
