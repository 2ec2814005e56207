package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"readrepeat/internal/lesson"
	"readrepeat/internal/logging"
	"readrepeat/internal/queue"
	"readrepeat/internal/services"
)

// Source delivers jobs and records their outcome.
type Source interface {
	// Next returns the next job, or nil when none is waiting.
	Next(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, job *Job, result Result) error
	Fail(ctx context.Context, job *Job, cause error) error
}

// Report statuses understood by the lesson API.
const (
	ReportCompleted = "COMPLETED"
	ReportFailed    = "FAILED"
)

// Report is the completion body posted to the lesson API.
type Report struct {
	JobID            string                  `json:"jobId"`
	Status           string                  `json:"status"`
	JobType          Kind                    `json:"jobType"`
	Sentences        []lesson.SentenceRecord `json:"sentences,omitempty"`
	UpdatedSentences []lesson.ClipUpdate     `json:"updatedSentences,omitempty"`
	Result           any                     `json:"result,omitempty"`
	ErrorMessage     string                  `json:"errorMessage,omitempty"`
}

func completedReport(job *Job, result Result) Report {
	return Report{
		JobID:            job.ID,
		Status:           ReportCompleted,
		JobType:          job.Kind,
		Sentences:        result.Sentences,
		UpdatedSentences: result.UpdatedSentences,
		Result:           result.Data,
	}
}

const pollPath = "/api/jobs/poll"

// APIClient polls the lesson web API for jobs.
type APIClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewAPIClient constructs a client for baseURL.
func NewAPIClient(baseURL string, timeout time.Duration, client *http.Client, logger *slog.Logger) *APIClient {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    client,
		logger:  logger,
	}
}

type pollResponse struct {
	Job *Job `json:"job"`
}

// Next polls for a job. A refused connection means the web app is not up
// yet and is reported as no job.
func (c *APIClient) Next(ctx context.Context) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pollPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			c.logger.Debug("connection refused; lesson api may not be running", logging.String("url", c.baseURL))
			return nil, nil
		}
		return nil, services.Wrap(services.ErrTransient, "poll", "GET "+pollPath, "Polling for jobs failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrTransient, "poll", "GET "+pollPath,
			fmt.Sprintf("Lesson API returned %s", resp.Status), errors.New(strings.TrimSpace(string(body))))
	}
	var decoded pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return decoded.Job, nil
}

// Complete reports success.
func (c *APIClient) Complete(ctx context.Context, job *Job, result Result) error {
	return c.report(ctx, completedReport(job, result))
}

// Fail reports failure with the error's user-facing message.
func (c *APIClient) Fail(ctx context.Context, job *Job, cause error) error {
	return c.report(ctx, Report{
		JobID:        job.ID,
		Status:       ReportFailed,
		JobType:      job.Kind,
		ErrorMessage: services.Message(cause),
	})
}

func (c *APIClient) report(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pollPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "POST "+pollPath, "Reporting job status failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrTransient, "report", "POST "+pollPath,
			fmt.Sprintf("Lesson API returned %s", resp.Status), errors.New(strings.TrimSpace(string(snippet))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// QueueSource serves jobs from the local SQLite queue. Payloads are stored
// in the lesson API's wire shape.
type QueueSource struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewQueueSource wraps store.
func NewQueueSource(store *queue.Store, logger *slog.Logger) *QueueSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &QueueSource{store: store, logger: logger}
}

// Next claims the oldest pending job. A row whose payload cannot be decoded
// is moved to review and skipped.
func (q *QueueSource) Next(ctx context.Context) (*Job, error) {
	for {
		row, err := q.store.NextPending(ctx)
		if err != nil || row == nil {
			return nil, err
		}
		job, err := Decode([]byte(row.PayloadJSON))
		if err != nil {
			logging.WarnWithContext(q.logger, "queued job payload unreadable", "queue_payload_invalid",
				logging.Int64("queue_id", row.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "job moved to review"),
			)
			if failErr := q.store.Fail(ctx, row.ID, queue.StatusReview, "Invalid job payload: "+err.Error()); failErr != nil {
				return nil, failErr
			}
			continue
		}
		job.QueueID = row.ID
		job.Kind = Kind(row.Kind)
		if job.ID == "" {
			job.ID = strconv.FormatInt(row.ID, 10)
		}
		return job, nil
	}
}

// Complete stores the completion report as the row's result.
func (q *QueueSource) Complete(ctx context.Context, job *Job, result Result) error {
	data, err := json.Marshal(completedReport(job, result))
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return q.store.Complete(ctx, job.QueueID, string(data))
}

// Fail records the failure, sending bad input to review.
func (q *QueueSource) Fail(ctx context.Context, job *Job, cause error) error {
	return q.store.Fail(ctx, job.QueueID, services.FailureStatus(cause), services.Message(cause))
}

// EncodeForQueue serializes a job into the payload stored by the queue.
func EncodeForQueue(job *Job) (string, error) {
	if _, ok := ParseKind(string(job.Kind)); !ok {
		return "", services.NewUserError(services.ErrValidation,
			fmt.Sprintf("Unknown job type: %s (expected one of %s)", job.Kind, kindNames(AllKinds())))
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	return string(data), nil
}

// Recover returns jobs left processing by an interrupted worker to pending.
func (q *QueueSource) Recover(ctx context.Context) (int64, error) {
	return q.store.ResetStuckProcessing(ctx)
}
