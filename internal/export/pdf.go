package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"setlister/internal/models"
)

const unassignedHeading = "Songs"

// PDFRenderer lays a setlist out as an A4 stage sheet.
type PDFRenderer struct {
	// Compress toggles content stream compression. Disabled only in tests.
	Compress bool
}

// NewPDFRenderer returns a renderer with production defaults.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Compress: true}
}

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"#", 10, "R"},
	{"Title", 58, "L"},
	{"Artist", 40, "L"},
	{"Key", 14, "C"},
	{"BPM", 14, "R"},
	{"Time", 16, "R"},
	{"Notes", 38, "L"},
}

// Render writes the PDF document for view to w.
func (r *PDFRenderer) Render(w io.Writer, view View) error {
	if view.Setlist == nil {
		return fmt.Errorf("render pdf: missing setlist")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetTitle(view.Setlist.Name, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(view.Setlist.Name), "", 1, "L", false, 0, "")
	if view.Setlist.Description != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, tr(view.Setlist.Description), "", "L", false)
	}
	pdf.Ln(4)

	number := 1
	for _, section := range view.Sections {
		if section.Block == nil && len(section.Entries) == 0 {
			continue
		}
		heading := unassignedHeading
		if section.Block != nil {
			heading = section.Block.Name
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%s)", heading, formatDuration(section.Duration()))), "B", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, 6, c.title, "", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, e := range section.Entries {
			for i, value := range row(number, e) {
				pdf.CellFormat(columns[i].width, 6, tr(value), "", 0, columns[i].align, false, 0, "")
			}
			pdf.Ln(-1)
			number++
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Total time: "+formatDuration(view.Duration()), "T", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func row(number int, e models.EntryView) []string {
	tempo := ""
	if e.Song.Tempo > 0 {
		tempo = strconv.FormatFloat(e.Song.Tempo, 'f', -1, 64)
	}
	notes := e.Notes
	if notes == "" {
		notes = e.Song.Notes
	}
	return []string{
		strconv.Itoa(number),
		truncate(e.Song.Title, 34),
		truncate(e.Song.Artist, 24),
		e.Song.Key,
		tempo,
		formatDuration(time.Duration(e.Song.DurationSeconds) * time.Second),
		truncate(notes, 22),
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
