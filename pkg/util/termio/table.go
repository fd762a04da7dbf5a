// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package termio

import (
	"fmt"
	"io"
	"strings"
)

// TablePrinter is useful for printing tables to the terminal.  The first row
// is treated as a header, and is printed in bold (when escapes are enabled)
// followed by a separator.
type TablePrinter struct {
	widths        []uint
	rows          [][]string
	escapes       [][]string
	enableEscapes bool
}

// NewTablePrinter constructs a new table with given dimensions.
func NewTablePrinter(width uint, height uint) *TablePrinter {
	widths := make([]uint, width)
	rows := make([][]string, height)
	escapes := make([][]string, height)
	// Construct the table
	for i := uint(0); i < height; i++ {
		rows[i] = make([]string, width)
		escapes[i] = make([]string, width)
	}

	return &TablePrinter{widths, rows, escapes, true}
}

// Set the contents of a given cell in this table
func (p *TablePrinter) Set(col uint, row uint, val string) {
	p.widths[col] = max(p.widths[col], uint(len(val)))
	p.rows[row][col] = val
}

// SetEscape set the colour to use when printing the contents of a given cell
func (p *TablePrinter) SetEscape(col uint, row uint, escape string) {
	p.escapes[row][col] = escape
}

// AnsiEscapes enables or disables the use of ANSI escapes (e.g. for showing
// colour).  Disabling escapes is useful when output is not a terminal as,
// otherwise, you get a lot of visible escape characters being printed.
func (p *TablePrinter) AnsiEscapes(enable bool) {
	p.enableEscapes = enable
}

// SetRow sets the contents of an entire row in this table
func (p *TablePrinter) SetRow(row uint, vals ...string) {
	if len(vals) != len(p.widths) {
		panic("incorrect number of columns")
	}
	//
	for i, val := range vals {
		p.Set(uint(i), row, val)
	}
}

// SetMaxWidths puts an upper bound on the width of any column.
func (p *TablePrinter) SetMaxWidths(width uint) {
	for i := range p.widths {
		p.SetMaxWidth(uint(i), width)
	}
}

// SetMaxWidth puts an upper bound on the width of a given column.  Cells which
// are too wide are truncated, with ".." marking the truncation.
func (p *TablePrinter) SetMaxWidth(col uint, width uint) {
	p.widths[col] = min(p.widths[col], max(width, 3))
}

// Print the table to a given writer.
func (p *TablePrinter) Print(w io.Writer) {
	for i, row := range p.rows {
		for j, cell := range row {
			p.printCell(w, cell, p.widths[j], p.escape(i, j))
		}
		//
		fmt.Fprintln(w)
		// Separate header from body
		if i == 0 && len(p.rows) > 1 {
			for _, width := range p.widths {
				fmt.Fprintf(w, "-%s-+", strings.Repeat("-", int(width)))
			}
			//
			fmt.Fprintln(w)
		}
	}
}

// Determine the escape for a given cell (if any).
func (p *TablePrinter) escape(row, col int) string {
	switch {
	case !p.enableEscapes:
		return ""
	case row == 0 && len(p.rows) > 1:
		return BoldAnsiEscape().Build()
	default:
		return p.escapes[row][col]
	}
}

func (p *TablePrinter) printCell(w io.Writer, cell string, width uint, escape string) {
	if escape != "" {
		fmt.Fprint(w, escape)
	}
	//
	if uint(len(cell)) > width {
		fmt.Fprintf(w, " %s..", cell[:width-2])
	} else {
		fmt.Fprintf(w, " %-*s", width, cell)
	}
	//
	if escape != "" {
		fmt.Fprint(w, ResetAnsiEscape().Build())
	}
	//
	fmt.Fprint(w, " |")
}
