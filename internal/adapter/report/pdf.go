// Package report renders the candidate assessment report as PDF.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/fairyhunter13/vericv/internal/domain"
)

const (
	fontFamilyCore = "Helvetica"
	fontFamilyUTF8 = "ReportSans"
	notAvailable   = "N/A"
)

// Renderer implements domain.ReportRenderer. With a TTF font path it embeds
// a UTF-8 font (needed for Arabic CVs); otherwise the core Helvetica font is
// used and non-Latin-1 characters degrade.
type Renderer struct {
	fontPath string
}

func New(fontPath string) *Renderer { return &Renderer{fontPath: fontPath} }

// Render lays out the report and returns the PDF bytes.
func (r *Renderer) Render(data domain.ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := fontFamilyCore
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		pdf.AddUTF8Font(fontFamilyUTF8, "", r.fontPath)
		pdf.AddUTF8Font(fontFamilyUTF8, "B", r.fontPath)
		family = fontFamilyUTF8
		tr = func(s string) string { return s }
	}
	pdf.SetTitle("VeriCV Assessment Report", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont(family, "B", 20)
	pdf.SetTextColor(26, 35, 126)
	pdf.CellFormat(0, 12, tr("VeriCV Assessment Report"), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 6, tr("Generated: "+data.GeneratedAt.Format("January 02, 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, family, tr, "Candidate Information")
	rows := [][2]string{
		{"Name", orNA(data.CV.Name)},
		{"Phone", orNA(data.CV.Phone)},
		{"City", orNA(data.CV.City)},
	}
	for _, row := range rows {
		pdf.SetFont(family, "B", 11)
		pdf.SetFillColor(232, 234, 246)
		pdf.CellFormat(40, 8, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont(family, "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	section(pdf, family, tr, "Technical Assessment Results")
	pdf.SetFont(family, "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Overall Score: %d%%", data.Score)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if iv := data.Interview; iv != nil && iv.Status == domain.InterviewCompleted {
		section(pdf, family, tr, "Voice Interview Evaluation")
		pdf.SetFont(family, "", 11)
		for _, s := range []struct {
			label string
			score int
		}{
			{"Soft Skills", iv.SoftSkillsScore},
			{"Communication", iv.CommunicationScore},
			{"Confidence", iv.ConfidenceScore},
		} {
			pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s: %d/100", s.label, s.score)), "", 1, "L", false, 0, "")
		}
		if iv.Feedback != "" {
			pdf.Ln(2)
			pdf.SetFont(family, "B", 11)
			pdf.CellFormat(0, 7, tr("AI Feedback:"), "", 1, "L", false, 0, "")
			pdf.SetFont(family, "", 11)
			pdf.MultiCell(0, 6, tr(iv.Feedback), "", "L", false)
		}
		if iv.Suggestions != "" {
			pdf.Ln(2)
			pdf.SetFont(family, "B", 11)
			pdf.CellFormat(0, 7, tr("Improvement Suggestions:"), "", 1, "L", false, 0, "")
			pdf.SetFont(family, "", 11)
			pdf.MultiCell(0, 6, tr(iv.Suggestions), "", "L", false)
		}
		pdf.Ln(4)
	}

	if titles := nonEmpty(data.CV.JobTitles); len(titles) > 0 {
		section(pdf, family, tr, "Recommended Job Titles")
		pdf.SetFont(family, "", 11)
		for _, t := range titles {
			pdf.CellFormat(0, 7, tr("- "+t), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("op=report.Render: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, family string, tr func(string) string, title string) {
	pdf.SetFont(family, "B", 14)
	pdf.SetTextColor(40, 53, 147)
	pdf.CellFormat(0, 9, tr(title), "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// FileName is the attachment name used for a CV's report.
func FileName(cvID string) string { return "vericv_report_" + cvID + ".pdf" }
