package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/storage/database"
)

var printer = message.NewPrinter(language.English)

// render prints the current page of s: its rows, the pager and any notice or error.
func render(w io.Writer, s screen) {
	meta := s.Meta()
	if meta.Notice != "" {
		fmt.Fprintf(w, "* %s\n", meta.Notice)
	}
	if meta.Err != "" {
		fmt.Fprintf(w, "error: %s\n", meta.Err)
	}

	rows := s.Rows()
	if len(rows) == 0 {
		fmt.Fprintf(w, "no %s found\n", s.Name())
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(s.Columns(), "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
	}
	fmt.Fprintln(w, footer(s.Name(), meta))
}

// footer reads like "1 … 4 [5] 6 … 10  page 5 of 10, 95 schools".
func footer(name string, meta listview.Meta) string {
	if meta.TotalPages <= 1 {
		return printer.Sprintf("%d %s", meta.TotalCount, name)
	}
	return pager(meta.CurrentPage, meta.Window) + "  " +
		printer.Sprintf("page %d of %d, %d %s", meta.CurrentPage+1, meta.TotalPages, meta.TotalCount, name)
}

// pager renders a page window with 1-based page numbers.
func pager(current int, window []int) string {
	parts := make([]string, 0, len(window))
	for _, p := range window {
		switch {
		case p == listview.Ellipsis:
			parts = append(parts, "…")
		case p == current:
			parts = append(parts, "["+strconv.Itoa(p+1)+"]")
		default:
			parts = append(parts, strconv.Itoa(p+1))
		}
	}
	return strings.Join(parts, " ")
}

func describeQuery(q listview.QueryState) string {
	var parts []string
	if q.SearchText != "" {
		parts = append(parts, strconv.Quote(q.SearchText))
	}
	for _, k := range q.FilterKeys() {
		parts = append(parts, k+"="+q.Filters[k])
	}
	if q.Sort.Field != "" {
		parts = append(parts, "sort "+q.Sort.String())
	}
	if q.PageSize > 0 {
		parts = append(parts, "size "+strconv.Itoa(q.PageSize))
	}
	if len(parts) == 0 {
		return "(defaults)"
	}
	return strings.Join(parts, ", ")
}

func renderViews(w io.Writer, views []database.SavedView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "no saved views")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCREEN\tNAME\tQUERY\tUPDATED\tNOTE")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Screen, v.Name, describeQuery(v.Query), humanize.Time(v.UpdatedAt), v.Note)
	}
	_ = tw.Flush()
}
