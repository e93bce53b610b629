package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/export"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/jobs"
)

// jobTypePaperBuild labels question paper renders on the export queue.
const jobTypePaperBuild = "export.paper_build"

type exportPaperStore interface {
	FindByID(ctx context.Context, id string) (*models.TestPaper, error)
	SetGeneratedPaperPath(ctx context.Context, id, path string) error
}

type exportAttemptStore interface {
	ListScoreRows(ctx context.Context, paperID string) ([]models.ScoreRow, error)
}

type exportQuestionStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

type exportFrameworkStore interface {
	FindByID(ctx context.Context, id string) (*models.ExamFramework, error)
}

type exportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// paperBuildPayload travels through the export queue. The handler re-reads
// the paper so a build picks up edits made between enqueue and render.
type paperBuildPayload struct {
	TenantID    string
	PaperID     string
	RequestedBy string
}

// ExportDownload bundles file reader metadata for streaming.
type ExportDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ExportService produces downloadable artifacts: per-paper score sheets in
// CSV or PDF, and the printable question paper built asynchronously once the
// committee holds the paper. Files land in local storage and are fetched
// back through signed tokens.
type ExportService struct {
	papers     exportPaperStore
	attempts   exportAttemptStore
	questions  exportQuestionStore
	frameworks exportFrameworkStore
	files      exportFileStore
	signer     downloadSigner
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	paper      *export.QuestionPaperExporter
	queue      jobEnqueuer
	logger     *zap.Logger
}

// NewExportService constructs the service. Attach the queue after building
// it with HandlePaperBuild as its handler.
func NewExportService(papers exportPaperStore, attempts exportAttemptStore, questions exportQuestionStore, frameworks exportFrameworkStore, files exportFileStore, signer downloadSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		papers:     papers,
		attempts:   attempts,
		questions:  questions,
		frameworks: frameworks,
		files:      files,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		paper:      export.NewQuestionPaperExporter(),
		logger:     logger,
	}
}

// AttachQueue wires the worker queue used for paper builds. Without one,
// builds run inline on the caller's goroutine.
func (s *ExportService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// ExportResults renders the paper's score sheet and stores it for download.
// The sheet carries one row per attempt, joined with the student directory.
func (s *ExportService) ExportResults(ctx context.Context, tenantID, paperID, format string, actor *models.JWTClaims) (*dto.ExportFileResponse, error) {
	if err := requireResultsExporter(actor); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	paper, err := s.loadPaper(ctx, tenantID, paperID)
	if err != nil {
		return nil, err
	}
	switch paper.WorkflowState {
	case workflow.StateActive, workflow.StateLocked, workflow.StateArchived:
	default:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("no results to export while the paper is %s", paper.WorkflowState))
	}

	rows, err := s.attempts.ListScoreRows(ctx, paper.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score rows")
	}
	sheet := scoreSheet(fmt.Sprintf("%s score sheet", paper.Title), rows)

	var data []byte
	switch format {
	case dto.ExportFormatCSV:
		data, err = s.csv.Render(sheet)
	case dto.ExportFormatPDF:
		data, err = s.pdf.Render(sheet)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	relPath := filepath.Join("exports", tenantID, fmt.Sprintf("results-%s-%s.%s", paper.ID, exportID, format))
	if _, err := s.files.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	s.logger.Info("results export generated",
		zap.String("paper_id", paper.ID),
		zap.String("format", format),
		zap.Int("rows", len(rows)))

	return &dto.ExportFileResponse{
		FileName:  filepath.Base(relPath),
		Format:    format,
		Rows:      len(rows),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// GeneratePaper queues the printable question paper build. The render runs
// on the export queue; without one it runs inline and the response says so.
func (s *ExportService) GeneratePaper(ctx context.Context, tenantID, paperID string, actor *models.JWTClaims) (*dto.PaperBuildResponse, error) {
	if err := requirePaperPrinter(actor); err != nil {
		return nil, err
	}
	paper, err := s.loadPaper(ctx, tenantID, paperID)
	if err != nil {
		return nil, err
	}
	switch paper.WorkflowState {
	case workflow.StateSentToCommittee, workflow.StateActive, workflow.StateLocked:
	default:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("paper must clear the approval pipeline before printing, not %s", paper.WorkflowState))
	}
	if len(paper.QuestionIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "paper has no questions attached")
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypePaperBuild,
		Payload: paperBuildPayload{
			TenantID:    tenantID,
			PaperID:     paper.ID,
			RequestedBy: actor.UserID,
		},
	}
	if s.queue == nil {
		if err := s.HandlePaperBuild(ctx, job); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build question paper")
		}
		return &dto.PaperBuildResponse{JobID: job.ID, Status: dto.ExportJobCompleted}, nil
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue paper build")
	}
	return &dto.PaperBuildResponse{JobID: job.ID, Status: dto.ExportJobQueued}, nil
}

// HandlePaperBuild is the export queue handler. Errors bubble up so the
// queue retries; the final write flips the paper's printing flag.
func (s *ExportService) HandlePaperBuild(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(paperBuildPayload)
	if !ok {
		return fmt.Errorf("paper build job %s carries unexpected payload %T", job.ID, job.Payload)
	}
	paper, err := s.loadPaper(ctx, payload.TenantID, payload.PaperID)
	if err != nil {
		return fmt.Errorf("load paper %s: %w", payload.PaperID, err)
	}
	questions, err := s.questions.FindByIDs(ctx, []string(paper.QuestionIDs))
	if err != nil {
		return fmt.Errorf("load questions for %s: %w", paper.ID, err)
	}
	ordered := orderQuestions(paper.QuestionIDs, questions)
	if len(ordered) == 0 {
		return fmt.Errorf("paper %s has no resolvable questions", paper.ID)
	}

	sets, pageSize := s.printingSpec(ctx, paper)
	layout := export.PaperLayout{
		Title:           paper.Title,
		Grade:           paper.Grade,
		Subject:         paper.Subject,
		TotalMarks:      paper.TotalMarks,
		DurationMinutes: paper.DurationMinutes,
		Sets:            sets,
		PageSize:        pageSize,
	}
	data, err := s.paper.Render(layout, printableQuestions(ordered))
	if err != nil {
		return fmt.Errorf("render paper %s: %w", paper.ID, err)
	}

	relPath := filepath.Join("papers", payload.TenantID, fmt.Sprintf("%s.pdf", paper.ID))
	if _, err := s.files.Save(relPath, data); err != nil {
		return fmt.Errorf("store paper %s: %w", paper.ID, err)
	}
	if err := s.papers.SetGeneratedPaperPath(ctx, paper.ID, relPath); err != nil {
		return fmt.Errorf("mark paper %s printing ready: %w", paper.ID, err)
	}

	s.logger.Info("question paper rendered",
		zap.String("paper_id", paper.ID),
		zap.Int("questions", len(ordered)),
		zap.Int("sets", sets),
		zap.String("page_size", pageSize),
		zap.String("requested_by", payload.RequestedBy))
	return nil
}

// PaperDownloadToken mints a signed token for an already generated question
// paper.
func (s *ExportService) PaperDownloadToken(ctx context.Context, tenantID, paperID string, actor *models.JWTClaims) (*dto.ExportFileResponse, error) {
	if err := requirePaperPrinter(actor); err != nil {
		return nil, err
	}
	paper, err := s.loadPaper(ctx, tenantID, paperID)
	if err != nil {
		return nil, err
	}
	if paper.GeneratedPaperPath == nil || *paper.GeneratedPaperPath == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "question paper has not been generated yet")
	}
	token, expiresAt, err := s.signer.Generate(paper.ID, *paper.GeneratedPaperPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return &dto.ExportFileResponse{
		FileName:  filepath.Base(*paper.GeneratedPaperPath),
		Format:    dto.ExportFormatPDF,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// DownloadByToken resolves a signed token to the stored file. The token is
// the authorization; the tenant check stops tokens leaking across schools.
func (s *ExportService) DownloadByToken(ctx context.Context, tenantID, token string) (*ExportDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token is invalid or expired")
	}
	rel := filepath.ToSlash(relPath)
	parts := strings.Split(rel, "/")
	if strings.Contains(rel, "..") || len(parts) < 2 || parts[1] != tenantID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download token belongs to another school")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  mimeTypeFor(relPath),
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// printingSpec resolves sets and page size from the paper's framework,
// falling back to a single A4 set when no framework is bound.
func (s *ExportService) printingSpec(ctx context.Context, paper *models.TestPaper) (int, string) {
	sets, pageSize := 1, "A4"
	if paper.ExamFrameworkID == nil || *paper.ExamFrameworkID == "" {
		return sets, pageSize
	}
	framework, err := s.frameworks.FindByID(ctx, *paper.ExamFrameworkID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load framework for paper build, using defaults",
				zap.String("paper_id", paper.ID),
				zap.Error(err))
		}
		return sets, pageSize
	}
	if framework.TenantID != paper.TenantID {
		return sets, pageSize
	}
	if framework.QuestionPaperSets > 0 {
		sets = framework.QuestionPaperSets
	}
	if framework.PageSize != "" {
		pageSize = framework.PageSize
	}
	return sets, pageSize
}

func (s *ExportService) loadPaper(ctx context.Context, tenantID, id string) (*models.TestPaper, error) {
	paper, err := s.papers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	if paper.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
	}
	return paper, nil
}

// scoreSheet flattens score rows into the tabular shape shared by the CSV
// and PDF renderers.
func scoreSheet(title string, rows []models.ScoreRow) export.Sheet {
	sheet := export.Sheet{
		Title:   title,
		Columns: []string{"Student Code", "Student Name", "Status", "Score", "Max Score", "Percent", "Submitted At"},
	}
	for _, row := range rows {
		record := map[string]string{
			"Student Code": row.UserCode,
			"Student Name": row.FullName,
			"Status":       string(row.Status),
			"Max Score":    formatScore(row.MaxScore),
		}
		if row.Score != nil {
			record["Score"] = formatScore(*row.Score)
			if row.MaxScore > 0 {
				record["Percent"] = fmt.Sprintf("%.1f", *row.Score/row.MaxScore*100)
			}
		}
		if row.SubmittedAt != nil {
			record["Submitted At"] = row.SubmittedAt.UTC().Format("2006-01-02 15:04")
		}
		sheet.Rows = append(sheet.Rows, record)
	}
	return sheet
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// orderQuestions arranges bank rows in the paper's question order, dropping
// ids that no longer resolve.
func orderQuestions(ids []string, questions []models.Question) []models.Question {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}

// printableQuestions maps bank rows into the exporter's shape, decoding
// choice options out of their JSONB column. Subjective types carry the stem
// and marks only.
func printableQuestions(questions []models.Question) []export.PaperQuestion {
	out := make([]export.PaperQuestion, 0, len(questions))
	for _, q := range questions {
		item := export.PaperQuestion{Text: q.Text, Marks: q.Marks}
		if len(q.Options) > 0 {
			var options []string
			if err := json.Unmarshal(q.Options, &options); err == nil {
				item.Options = options
			}
		}
		out = append(out, item)
	}
	return out
}

func requireResultsExporter(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher, models.RoleHOD, models.RolePrincipal, models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "score sheets are restricted to staff")
	}
}

func requirePaperPrinter(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "question paper builds are restricted to the exam committee")
	}
}
