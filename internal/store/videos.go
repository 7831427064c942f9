package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const videoColumns = "id, channel_id, title, published_at, status, failed_stage, last_error, transcript_retries, summary_retries, discovered_at, updated_at, enriched_at"

// InsertVideo persists a newly discovered video. The caller sets ID, channel,
// title, and published time; discovery state and timestamps are applied here.
func (s *Store) InsertVideo(ctx context.Context, video *Video) error {
	if video == nil {
		return errors.New("video is nil")
	}
	now := time.Now().UTC()
	video.Status = StatusDiscovered
	video.DiscoveredAt = now
	video.UpdatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO videos (
            id, channel_id, title, published_at, status,
            transcript_retries, summary_retries, discovered_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID,
		video.ChannelID,
		video.Title,
		nullableTimeValue(video.PublishedAt),
		video.Status,
		video.TranscriptRetries,
		video.SummaryRetries,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert video %s: %w", video.ID, err)
	}
	return nil
}

// GetVideo fetches a video by identifier. Returns nil when missing.
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// UpdateVideo persists changes to an existing video row.
func (s *Store) UpdateVideo(ctx context.Context, video *Video) error {
	if video == nil {
		return errors.New("video is nil")
	}
	video.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE videos
         SET status = ?, failed_stage = ?, last_error = ?,
             transcript_retries = ?, summary_retries = ?,
             updated_at = ?, enriched_at = ?
         WHERE id = ?`,
		video.Status,
		nullableString(video.FailedStage),
		nullableString(video.LastError),
		video.TranscriptRetries,
		video.SummaryRetries,
		formatTime(video.UpdatedAt),
		nullableTime(video.EnrichedAt),
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("update video %s: %w", video.ID, err)
	}
	return nil
}

// KnownIDs returns the set of video identifiers already recorded for a channel.
func (s *Store) KnownIDs(ctx context.Context, channelID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM videos WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, fmt.Errorf("known ids for %s: %w", channelID, err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

// VideosByStatus returns videos matching any of the provided statuses ordered
// by discovery time.
func (s *Store) VideosByStatus(ctx context.Context, statuses ...Status) ([]*Video, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + videoColumns + ` FROM videos WHERE status IN (` + placeholders + `) ORDER BY discovered_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("videos by status: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// ListOptions filters ListVideos output.
type ListOptions struct {
	Status    Status
	ChannelID string
	Limit     int
}

// ListVideos returns videos newest first, optionally filtered.
func (s *Store) ListVideos(ctx context.Context, opts ListOptions) ([]*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	var (
		clauses []string
		args    []any
	)
	if opts.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.ChannelID != "" {
		clauses = append(clauses, "channel_id = ?")
		args = append(args, opts.ChannelID)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY discovered_at DESC, id"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// SaveTranscript stores the transcript artifact, replacing any prior one.
func (s *Store) SaveTranscript(ctx context.Context, videoID, language, content string) error {
	now := formatTime(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO transcripts (video_id, language, content, fetched_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
             language = excluded.language,
             content = excluded.content,
             fetched_at = excluded.fetched_at`,
		videoID,
		nullableString(language),
		content,
		now,
	)
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", videoID, err)
	}
	return nil
}

// GetTranscript fetches the transcript artifact for a video. Returns nil when
// no transcript exists.
func (s *Store) GetTranscript(ctx context.Context, videoID string) (*Transcript, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, language, content, fetched_at FROM transcripts WHERE video_id = ?`,
		videoID,
	)
	var (
		t          Transcript
		language   sql.NullString
		fetchedRaw string
	)
	err := row.Scan(&t.VideoID, &language, &t.Content, &fetchedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	t.Language = language.String
	if fetched, err := parseTimeString(fetchedRaw); err == nil {
		t.FetchedAt = fetched
	}
	return &t, nil
}

// SaveSummary stores the summarization artifact, replacing any prior one.
func (s *Store) SaveSummary(ctx context.Context, summary Summary) error {
	points, err := json.Marshal(summary.KeyPoints)
	if err != nil {
		return fmt.Errorf("encode key points: %w", err)
	}
	now := formatTime(time.Now())
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO summaries (video_id, summary, key_points, category, model, generated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
             summary = excluded.summary,
             key_points = excluded.key_points,
             category = excluded.category,
             model = excluded.model,
             generated_at = excluded.generated_at`,
		summary.VideoID,
		summary.Summary,
		string(points),
		summary.Category,
		nullableString(summary.Model),
		now,
	)
	if err != nil {
		return fmt.Errorf("save summary %s: %w", summary.VideoID, err)
	}
	return nil
}

// GetSummary fetches the summary artifact for a video. Returns nil when no
// summary exists.
func (s *Store) GetSummary(ctx context.Context, videoID string) (*Summary, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, summary, key_points, category, model, generated_at FROM summaries WHERE video_id = ?`,
		videoID,
	)
	return scanSummary(row)
}

// EnrichedVideo joins a video with its summary for downstream consumers.
type EnrichedVideo struct {
	Video   Video
	Summary Summary
}

// EnrichedSince returns enriched videos whose enrichment completed at or
// after the cutoff, optionally filtered by channel domain.
func (s *Store) EnrichedSince(ctx context.Context, cutoff time.Time, domain string) ([]EnrichedVideo, error) {
	query := `SELECT v.id, v.channel_id, v.title, v.published_at, v.status, v.failed_stage, v.last_error,
            v.transcript_retries, v.summary_retries, v.discovered_at, v.updated_at, v.enriched_at,
            s.video_id, s.summary, s.key_points, s.category, s.model, s.generated_at
         FROM videos v
         JOIN summaries s ON s.video_id = v.id
         JOIN channels c ON c.id = v.channel_id
         WHERE v.status = ? AND v.enriched_at >= ?`
	args := []any{StatusEnriched, formatTime(cutoff)}
	if domain != "" {
		query += ` AND c.domain = ?`
		args = append(args, domain)
	}
	query += ` ORDER BY v.enriched_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("enriched since: %w", err)
	}
	defer rows.Close()

	var out []EnrichedVideo
	for rows.Next() {
		var (
			v            Video
			sum          Summary
			publishedRaw sql.NullString
			failedStage  sql.NullString
			lastError    sql.NullString
			discoRaw     sql.NullString
			updatedRaw   sql.NullString
			enrichedRaw  sql.NullString
			pointsRaw    string
			model        sql.NullString
			generatedRaw string
		)
		if err := rows.Scan(
			&v.ID, &v.ChannelID, &v.Title, &publishedRaw, &v.Status, &failedStage, &lastError,
			&v.TranscriptRetries, &v.SummaryRetries, &discoRaw, &updatedRaw, &enrichedRaw,
			&sum.VideoID, &sum.Summary, &pointsRaw, &sum.Category, &model, &generatedRaw,
		); err != nil {
			return nil, err
		}
		fillVideoTimes(&v, publishedRaw, discoRaw, updatedRaw, enrichedRaw)
		v.FailedStage = failedStage.String
		v.LastError = lastError.String
		sum.Model = model.String
		if err := json.Unmarshal([]byte(pointsRaw), &sum.KeyPoints); err != nil {
			return nil, fmt.Errorf("decode key points for %s: %w", v.ID, err)
		}
		if generated, err := parseTimeString(generatedRaw); err == nil {
			sum.GeneratedAt = generated
		}
		out = append(out, EnrichedVideo{Video: v, Summary: sum})
	}
	return out, rows.Err()
}

// Stats returns a count of videos grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM videos GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		v            Video
		publishedRaw sql.NullString
		failedStage  sql.NullString
		lastError    sql.NullString
		discoRaw     sql.NullString
		updatedRaw   sql.NullString
		enrichedRaw  sql.NullString
		statusStr    string
	)
	if err := scanner.Scan(
		&v.ID,
		&v.ChannelID,
		&v.Title,
		&publishedRaw,
		&statusStr,
		&failedStage,
		&lastError,
		&v.TranscriptRetries,
		&v.SummaryRetries,
		&discoRaw,
		&updatedRaw,
		&enrichedRaw,
	); err != nil {
		return nil, err
	}
	v.Status = Status(statusStr)
	v.FailedStage = failedStage.String
	v.LastError = lastError.String
	fillVideoTimes(&v, publishedRaw, discoRaw, updatedRaw, enrichedRaw)
	return &v, nil
}

func fillVideoTimes(v *Video, published, discovered, updated, enriched sql.NullString) {
	if published.Valid {
		if t, err := parseTimeString(published.String); err == nil {
			v.PublishedAt = t
		}
	}
	if t, err := parseTimeString(discovered.String); err == nil {
		v.DiscoveredAt = t
	}
	if t, err := parseTimeString(updated.String); err == nil {
		v.UpdatedAt = t
	}
	if enriched.Valid {
		if t, err := parseTimeString(enriched.String); err == nil {
			v.EnrichedAt = &t
		}
	}
}

func scanSummary(row *sql.Row) (*Summary, error) {
	var (
		sum          Summary
		pointsRaw    string
		model        sql.NullString
		generatedRaw string
	)
	err := row.Scan(&sum.VideoID, &sum.Summary, &pointsRaw, &sum.Category, &model, &generatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	sum.Model = model.String
	if err := json.Unmarshal([]byte(pointsRaw), &sum.KeyPoints); err != nil {
		return nil, fmt.Errorf("decode key points: %w", err)
	}
	if generated, err := parseTimeString(generatedRaw); err == nil {
		sum.GeneratedAt = generated
	}
	return &sum, nil
}
