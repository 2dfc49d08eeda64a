/*
Copyright © 2022 the covidsat authors.
This file is part of covidsat.

covidsat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

covidsat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with covidsat.  If not, see <http://www.gnu.org/licenses/>.
*/


package covidsatutil

import (
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spatialmodel/covidsat"
	"github.com/spatialmodel/covidsat/order"
)

// printSummary writes a table of the inputs of a batch and their outcomes.
func printSummary(w io.Writer, title string, s *covidsat.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Input", "Outputs", "Status"})
	for _, r := range s.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{filepath.Base(r.Input), len(r.Outputs), status})
	}
	t.AppendFooter(table.Row{"Total", s.Outputs(), failedStatus(len(s.Failed()))})
	t.Render()
}

// printReport writes a table of the results of a download.
func printReport(w io.Writer, rep *order.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("download")
	t.AppendHeader(table.Row{"File", "Status"})
	for _, f := range rep.Failed {
		t.AppendRow(table.Row{f.Entry.Name, f.Err.Error()})
	}
	t.AppendFooter(table.Row{"Downloaded", len(rep.Downloaded)})
	t.AppendFooter(table.Row{"Skipped", len(rep.Skipped)})
	t.AppendFooter(table.Row{"Failed", len(rep.Failed)})
	t.AppendFooter(table.Row{"Bytes", humanize.Bytes(uint64(rep.Bytes))})
	t.Render()
}

func failedStatus(n int) string {
	if n == 0 {
		return "ok"
	}
	return humanize.Comma(int64(n)) + " failed"
}
