package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists analysis records. Beats, segments and scenes are stored
// as a JSON payload column; the scalar columns exist for listing and lookup
// without decoding the whole document.
type Repository interface {
	SaveAudio(ctx context.Context, a *AudioAnalysis) error
	GetAudio(ctx context.Context, id string) (*AudioAnalysis, error)
	GetAudioByPath(ctx context.Context, path string) (*AudioAnalysis, error)
	ListAudio(ctx context.Context) ([]*AudioAnalysis, error)
	DeleteAudio(ctx context.Context, id string) error

	SaveVideo(ctx context.Context, v *VideoAnalysis) error
	GetVideo(ctx context.Context, id string) (*VideoAnalysis, error)
	GetVideoByPath(ctx context.Context, path string) (*VideoAnalysis, error)
	GetVideos(ctx context.Context, ids []string) (map[string]*VideoAnalysis, error)
	ListVideos(ctx context.Context) ([]*VideoAnalysis, error)
	DeleteVideo(ctx context.Context, id string) error

	CountAnalyses(ctx context.Context) (audio int, video int, err error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveAudio(ctx context.Context, a *AudioAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode audio analysis %s: %w", a.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audio_analyses (id, media_path, duration, tempo, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			media_path = excluded.media_path,
			duration = excluded.duration,
			tempo = excluded.tempo,
			payload = excluded.payload
	`, a.ID, a.MediaPath, a.Duration, a.Tempo, string(payload), a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAudio(ctx context.Context, id string) (*AudioAnalysis, error) {
	row := r.db.QueryRowContext(ctx, "SELECT payload FROM audio_analyses WHERE id = ?", id)
	return scanAudio(row)
}

func (r *SQLiteRepository) GetAudioByPath(ctx context.Context, path string) (*AudioAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload FROM audio_analyses WHERE media_path = ? ORDER BY created_at DESC LIMIT 1
	`, path)
	return scanAudio(row)
}

func scanAudio(row *sql.Row) (*AudioAnalysis, error) {
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var a AudioAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("decode audio analysis: %w", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) ListAudio(ctx context.Context) ([]*AudioAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT payload FROM audio_analyses ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AudioAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a AudioAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decode audio analysis: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteAudio(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM audio_analyses WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SaveVideo(ctx context.Context, v *VideoAnalysis) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode video analysis %s: %w", v.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO video_analyses (id, media_path, duration, scene_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			media_path = excluded.media_path,
			duration = excluded.duration,
			scene_count = excluded.scene_count,
			payload = excluded.payload
	`, v.ID, v.MediaPath, v.Duration, len(v.Scenes), string(payload), v.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*VideoAnalysis, error) {
	row := r.db.QueryRowContext(ctx, "SELECT payload FROM video_analyses WHERE id = ?", id)
	return scanVideo(row)
}

func (r *SQLiteRepository) GetVideoByPath(ctx context.Context, path string) (*VideoAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload FROM video_analyses WHERE media_path = ? ORDER BY created_at DESC LIMIT 1
	`, path)
	return scanVideo(row)
}

func scanVideo(row *sql.Row) (*VideoAnalysis, error) {
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v VideoAnalysis
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("decode video analysis: %w", err)
	}
	return &v, nil
}

// GetVideos loads the named analyses, failing if any is missing. The engine
// needs the complete set before a plan can be generated.
func (r *SQLiteRepository) GetVideos(ctx context.Context, ids []string) (map[string]*VideoAnalysis, error) {
	out := make(map[string]*VideoAnalysis, len(ids))
	for _, id := range ids {
		v, err := r.GetVideo(ctx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("video analysis %s not found", id)
		}
		out[id] = v
	}
	return out, nil
}

func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*VideoAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT payload FROM video_analyses ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*VideoAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var v VideoAnalysis
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decode video analysis: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM video_analyses WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountAnalyses(ctx context.Context) (int, int, error) {
	var audio, video int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audio_analyses").Scan(&audio); err != nil {
		return 0, 0, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM video_analyses").Scan(&video); err != nil {
		return 0, 0, err
	}
	return audio, video, nil
}
