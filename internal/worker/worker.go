package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/backend/internal/exports"
	"github.com/formloom/backend/internal/models"
	"github.com/formloom/backend/internal/responses"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/pkg/builder"
	"github.com/formloom/backend/pkg/queue"
	"github.com/formloom/backend/pkg/storage"
)

// ExportProcessor processes response export jobs: collect responses,
// write a CSV, upload to S3, update the export row.
type ExportProcessor struct {
	exportRepo *exports.Repository
	surveyRepo *surveys.Repository
	respRepo   *responses.Repository
	s3         *storage.S3
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewExportProcessor creates a response export processor.
func NewExportProcessor(exportRepo *exports.Repository, surveyRepo *surveys.Repository, respRepo *responses.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{exportRepo: exportRepo, surveyRepo: surveyRepo, respRepo: respRepo, s3: s3, queue: q, logger: logger}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	e, err := p.exportRepo.GetByID(ctx, payload.ExportID)
	if err != nil {
		return fmt.Errorf("export not found: %s", payload.ExportID)
	}
	if e.Status == models.ExportCompleted {
		p.logger.Info("export already completed", zap.String("export_id", e.ID.String()))
		return nil
	}
	if err := p.exportRepo.SetStatus(ctx, e.ID, models.ExportProcessing, nil); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	body, err := p.buildCSV(ctx, payload.SurveyID)
	if err != nil {
		_ = p.exportRepo.SetStatus(ctx, e.ID, models.ExportFailed, nil)
		return fmt.Errorf("build csv: %w", err)
	}

	key := storage.ExportKey(payload.SurveyID.String(), payload.ExportID.String())
	_, err = p.s3.Upload(ctx, p.s3.ExportsBucket(), key, "text/csv", bytes.NewReader(body), int64(len(body)), false)
	if err != nil {
		_ = p.exportRepo.SetStatus(ctx, e.ID, models.ExportFailed, nil)
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.exportRepo.SetStatus(ctx, e.ID, models.ExportCompleted, &key); err != nil {
		p.logger.Error("mark export completed failed", zap.Error(err), zap.String("export_id", e.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("export completed", zap.String("export_id", e.ID.String()), zap.String("s3_key", key))
	return nil
}

// buildCSV renders all responses for a survey as CSV: one row per
// response, one column per question in page order. Multiple-choice
// answers to the same question are joined with "; ".
func (p *ExportProcessor) buildCSV(ctx context.Context, surveyID uuid.UUID) ([]byte, error) {
	rows, err := p.surveyRepo.DetailRows(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	pages := builder.Flatten(rows)

	var questions []models.Question
	optionText := map[uuid.UUID]string{}
	for _, page := range pages {
		for _, q := range page.Questions {
			questions = append(questions, q)
			for _, o := range q.Options {
				optionText[o.ID] = builder.OptionTitle(o.Text)
			}
		}
	}

	list, err := p.respRepo.List(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"response_id", "submitted_at", "user_id"}
	for _, q := range questions {
		title := q.Title
		if title == "" {
			title = q.ID.String()
		}
		header = append(header, title)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, resp := range list {
		values := map[uuid.UUID]string{}
		for _, a := range resp.Answers {
			var v string
			switch {
			case a.OptionID != nil:
				v = optionText[*a.OptionID]
			case a.Text != nil:
				v = *a.Text
			}
			if prev, ok := values[a.QuestionID]; ok && prev != "" {
				values[a.QuestionID] = prev + "; " + v
			} else {
				values[a.QuestionID] = v
			}
		}
		record := []string{resp.ID.String(), resp.SubmittedAt.Format(time.RFC3339), ""}
		if resp.UserID != nil {
			record[2] = resp.UserID.String()
		}
		for _, q := range questions {
			record = append(record, values[q.ID])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
