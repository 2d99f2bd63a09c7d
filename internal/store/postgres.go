package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the audio_segments and segment_scores tables.
// Execute it via [Postgres.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS audio_segments (
    id              TEXT PRIMARY KEY,
    segment_type    TEXT NOT NULL,
    bus_name        TEXT NOT NULL DEFAULT '',
    speaker_id      TEXT NOT NULL DEFAULT '',
    speaker_role    TEXT NOT NULL DEFAULT '',
    archetype_id    TEXT NOT NULL DEFAULT '',
    language        TEXT NOT NULL DEFAULT '',
    scene_id        TEXT NOT NULL DEFAULT '',
    experience_id   TEXT NOT NULL DEFAULT '',
    line_id         TEXT NOT NULL DEFAULT '',
    emotional_tag   TEXT NOT NULL DEFAULT '',
    environment     TEXT NOT NULL DEFAULT '',
    effects_applied BOOLEAN NOT NULL DEFAULT FALSE,
    media_ref       TEXT NOT NULL DEFAULT '',
    sample_rate     INTEGER NOT NULL,
    bit_depth       INTEGER NOT NULL DEFAULT 16,
    channels        INTEGER NOT NULL DEFAULT 1,
    duration        DOUBLE PRECISION NOT NULL,
    start_ts        TIMESTAMPTZ NOT NULL,
    end_ts          TIMESTAMPTZ NOT NULL,
    extra           JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audio_segments_bus ON audio_segments(bus_name);
CREATE INDEX IF NOT EXISTS idx_audio_segments_scene ON audio_segments(scene_id);

CREATE TABLE IF NOT EXISTS segment_scores (
    segment_id                 TEXT PRIMARY KEY REFERENCES audio_segments(id),
    intelligibility            DOUBLE PRECISION NOT NULL,
    intelligibility_band       TEXT NOT NULL,
    intelligibility_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    naturalness                DOUBLE PRECISION NOT NULL,
    naturalness_band           TEXT NOT NULL,
    archetype_conformity       DOUBLE PRECISION NOT NULL,
    archetype_band             TEXT NOT NULL,
    simulator_stability        DOUBLE PRECISION NOT NULL,
    stability_band             TEXT NOT NULL,
    analysis_version           TEXT NOT NULL DEFAULT 'v1',
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Postgres]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements [SegmentStore] and [ScoreStore] against a PostgreSQL
// database. The open metadata map is serialised as JSONB.
type Postgres struct {
	db DB
}

// Compile-time interface checks.
var (
	_ SegmentStore = (*Postgres)(nil)
	_ ScoreStore   = (*Postgres)(nil)
)

// NewPostgres creates a store that uses the given database connection or
// pool. The caller is responsible for calling [Postgres.Migrate] to ensure
// the schema exists before issuing queries.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// tables and indexes if they do not already exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveSegment inserts a new segment facts row. It returns an error if the
// segment id already exists.
func (s *Postgres) SaveSegment(ctx context.Context, row *SegmentRow) error {
	extraJSON, err := json.Marshal(emptyMap(row.Extra))
	if err != nil {
		return fmt.Errorf("store: marshal extra: %w", err)
	}

	const query = `
		INSERT INTO audio_segments (
			id, segment_type, bus_name, speaker_id, speaker_role, archetype_id,
			language, scene_id, experience_id, line_id, emotional_tag, environment,
			effects_applied, media_ref, sample_rate, bit_depth, channels,
			duration, start_ts, end_ts, extra
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING created_at`

	err = s.db.QueryRow(ctx, query,
		row.ID, row.Type, row.BusName, row.SpeakerID, row.SpeakerRole, row.ArchetypeID,
		row.Language, row.SceneID, row.ExperienceID, row.LineID, row.EmotionalTag, row.Environment,
		row.EffectsApplied, row.MediaRef, row.SampleRate, row.BitDepth, row.Channels,
		row.Duration, row.Start, row.End, extraJSON,
	).Scan(&row.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("store: segment %q already exists", row.ID)
		}
		return fmt.Errorf("store: save segment: %w", err)
	}
	return nil
}

// UpsertScores creates or replaces the score row for row.SegmentID.
func (s *Postgres) UpsertScores(ctx context.Context, row *ScoreRow) error {
	const query = `
		INSERT INTO segment_scores (
			segment_id, intelligibility, intelligibility_band, intelligibility_confidence,
			naturalness, naturalness_band, archetype_conformity, archetype_band,
			simulator_stability, stability_band, analysis_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (segment_id) DO UPDATE SET
			intelligibility = EXCLUDED.intelligibility,
			intelligibility_band = EXCLUDED.intelligibility_band,
			intelligibility_confidence = EXCLUDED.intelligibility_confidence,
			naturalness = EXCLUDED.naturalness,
			naturalness_band = EXCLUDED.naturalness_band,
			archetype_conformity = EXCLUDED.archetype_conformity,
			archetype_band = EXCLUDED.archetype_band,
			simulator_stability = EXCLUDED.simulator_stability,
			stability_band = EXCLUDED.stability_band,
			analysis_version = EXCLUDED.analysis_version,
			updated_at = now()
		RETURNING updated_at`

	err := s.db.QueryRow(ctx, query,
		row.SegmentID, row.Intelligibility, row.IntelligibilityBand, row.IntelligibilityConfidence,
		row.Naturalness, row.NaturalnessBand, row.ArchetypeConformity, row.ArchetypeBand,
		row.SimulatorStability, row.StabilityBand, row.AnalysisVersion,
	).Scan(&row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert scores: %w", err)
	}
	return nil
}

// GetScores returns the score row for segmentID, or (nil, nil) when no row
// exists.
func (s *Postgres) GetScores(ctx context.Context, segmentID string) (*ScoreRow, error) {
	const query = `
		SELECT segment_id, intelligibility, intelligibility_band, intelligibility_confidence,
		       naturalness, naturalness_band, archetype_conformity, archetype_band,
		       simulator_stability, stability_band, analysis_version, updated_at
		FROM segment_scores
		WHERE segment_id = $1`

	var row ScoreRow
	err := s.db.QueryRow(ctx, query, segmentID).Scan(
		&row.SegmentID, &row.Intelligibility, &row.IntelligibilityBand, &row.IntelligibilityConfidence,
		&row.Naturalness, &row.NaturalnessBand, &row.ArchetypeConformity, &row.ArchetypeBand,
		&row.SimulatorStability, &row.StabilityBand, &row.AnalysisVersion, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get scores %q: %w", segmentID, err)
	}
	return &row, nil
}

// emptyMap returns m if non-nil, otherwise an empty non-nil map. This ensures
// JSON marshalling produces "{}" instead of "null".
func emptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
