package plans

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tempocut/tempocut-agent/internal/engine"
)

type Repository interface {
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context, limit int) ([]*Plan, error)
	DeletePlan(ctx context.Context, id string) error
	UpdatePlanStatus(ctx context.Context, id, status, errorMsg string) error
	StorePlanResult(ctx context.Context, id, fingerprint string, result *engine.Result) error
	CountPlans(ctx context.Context, status string) (int, error)

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int, stage string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const planColumns = "id, name, audio_id, video_ids, style, seed, fingerprint, status, payload, error, created_at, updated_at"

func (r *SQLiteRepository) CreatePlan(ctx context.Context, p *Plan) error {
	videoIDs, err := json.Marshal(p.VideoIDs)
	if err != nil {
		return fmt.Errorf("encode video ids: %w", err)
	}
	payload, err := marshalPlanPayload(p)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO plans (id, name, audio_id, video_ids, style, seed, fingerprint, status, payload, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.AudioID, string(videoIDs), string(p.Config.Style), p.Seed,
		p.Fingerprint, p.Status, payload, p.Error,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

// planPayload is the JSON document stored in the payload column: everything
// not worth its own column.
type planPayload struct {
	Config engine.Config  `json:"config"`
	Result *engine.Result `json:"result,omitempty"`
}

func marshalPlanPayload(p *Plan) (string, error) {
	b, err := json.Marshal(planPayload{Config: p.Config, Result: p.Result})
	if err != nil {
		return "", fmt.Errorf("encode plan %s: %w", p.ID, err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, id string) (*Plan, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM plans WHERE id = ?", id)
	return scanPlan(row.Scan)
}

func scanPlan(scan func(...any) error) (*Plan, error) {
	var p Plan
	var videoIDs, style, createdAt, updatedAt string
	var payload sql.NullString

	// style is redundant with the config payload; it exists as a queryable
	// column and is not read back here.
	err := scan(&p.ID, &p.Name, &p.AudioID, &videoIDs, &style, &p.Seed,
		&p.Fingerprint, &p.Status, &payload, &p.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(videoIDs), &p.VideoIDs); err != nil {
		return nil, fmt.Errorf("decode video ids for plan %s: %w", p.ID, err)
	}
	if payload.Valid {
		var doc planPayload
		if err := json.Unmarshal([]byte(payload.String), &doc); err != nil {
			return nil, fmt.Errorf("decode payload for plan %s: %w", p.ID, err)
		}
		p.Config = doc.Config
		p.Result = doc.Result
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListPlans(ctx context.Context, limit int) ([]*Plan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+planColumns+" FROM plans ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *SQLiteRepository) DeletePlan(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdatePlanStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE plans SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, errorMsg, id)
	return err
}

// StorePlanResult persists a generated result and marks the plan completed.
func (r *SQLiteRepository) StorePlanResult(ctx context.Context, id, fingerprint string, result *engine.Result) error {
	p, err := r.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", id)
	}

	p.Result = result
	payload, err := marshalPlanPayload(p)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE plans SET payload = ?, fingerprint = ?, status = ?, error = '', updated_at = datetime('now')
		WHERE id = ?
	`, payload, fingerprint, PlanStatusCompleted, id)
	return err
}

func (r *SQLiteRepository) CountPlans(ctx context.Context, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans").Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans WHERE status = ?", status).Scan(&count)
	}
	return count, err
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, progress, stage, target_id, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, j.Progress, j.Stage, j.TargetID, j.Error,
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

const jobColumns = "id, type, status, progress, stage, target_id, error, created_at, updated_at"

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row.Scan)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func scanJob(scan func(...any) error) (*Job, error) {
	var j Job
	var createdAt, updatedAt string

	err := scan(&j.ID, &j.Type, &j.Status, &j.Progress, &j.Stage, &j.TargetID, &j.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status = 'pending' ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, errorMsg, id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int, stage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, stage = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, stage, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
