package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// paperSetLabels caps a paper at four shuffled variants, the most a
// framework's questionPaperSets allows.
var paperSetLabels = []string{"A", "B", "C", "D"}

// PaperLayout carries the header facts and print options for a question
// paper build.
type PaperLayout struct {
	Title           string
	Grade           string
	Subject         string
	TotalMarks      int
	DurationMinutes int
	Sets            int
	PageSize        string
}

// PaperQuestion is one printable question. Options are present for choice
// types only.
type PaperQuestion struct {
	Text    string
	Marks   int
	Options []string
}

// QuestionPaperExporter renders the printable question paper, one section
// per set with the question order rotated between sets.
type QuestionPaperExporter struct{}

// NewQuestionPaperExporter constructs a question paper exporter.
func NewQuestionPaperExporter() *QuestionPaperExporter {
	return &QuestionPaperExporter{}
}

// Render produces the PDF. The set count is clamped to the label range and
// the page size defaults to A4.
func (e *QuestionPaperExporter) Render(layout PaperLayout, questions []PaperQuestion) ([]byte, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question paper has no questions")
	}
	sets := layout.Sets
	if sets < 1 {
		sets = 1
	}
	if sets > len(paperSetLabels) {
		sets = len(paperSetLabels)
	}
	pageSize := layout.PageSize
	if pageSize == "" {
		pageSize = "A4"
	}

	pdf := gofpdf.New("P", "mm", pageSize, "")
	pdf.SetMargins(15, 15, 15)
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	for set := 0; set < sets; set++ {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, strings.ToUpper(layout.Title), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Grade %s | %s | Set %s", layout.Grade, layout.Subject, paperSetLabels[set]), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Maximum marks: %d | Duration: %d minutes", layout.TotalMarks, layout.DurationMinutes), "", 1, "C", false, 0, "")
		pdf.Ln(4)

		for i, q := range rotateForSet(questions, set) {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(usable-18, 6, fmt.Sprintf("Q%d.", i+1), "", 0, "L", false, 0, "")
			pdf.CellFormat(18, 6, fmt.Sprintf("[%d]", q.Marks), "", 1, "R", false, 0, "")
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 6, q.Text, "", "L", false)
			for j, option := range q.Options {
				pdf.MultiCell(0, 6, fmt.Sprintf("     (%c) %s", 'a'+j, option), "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render question paper: %w", err)
	}
	return buf.Bytes(), nil
}

// rotateForSet shifts the question order per set so adjacent candidates
// holding different sets cannot share answers by position.
func rotateForSet(questions []PaperQuestion, offset int) []PaperQuestion {
	n := len(questions)
	if n == 0 || offset%n == 0 {
		return questions
	}
	shift := offset % n
	rotated := make([]PaperQuestion, 0, n)
	rotated = append(rotated, questions[shift:]...)
	rotated = append(rotated, questions[:shift]...)
	return rotated
}
