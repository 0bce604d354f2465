// Package repository persists arbitrated verdicts.
package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/match-verify/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Record is one persisted verdict with the two submissions it was built from.
type Record struct {
	MatchID     string
	Game        string
	TeamSize    int
	UserIDs     [2]string
	Verdict     domain.Verdict
	SubmissionA domain.Result
	SubmissionB domain.Result
	DecidedAt   time.Time
}

// Repository stores one verdict per match.
type Repository interface {
	SaveVerdict(ctx context.Context, rec *Record) error
	// GetVerdict returns nil, nil when the match has no verdict yet.
	GetVerdict(ctx context.Context, matchID string) (*Record, error)
}

// Postgres is the lib/pq backed Repository.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (r *Postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the verdict table when missing.
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// SaveVerdict upserts the verdict for a match.
func (r *Postgres) SaveVerdict(ctx context.Context, rec *Record) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	subA, err := json.Marshal(rec.SubmissionA)
	if err != nil {
		return fmt.Errorf("marshal submission a: %w", err)
	}
	subB, err := json.Marshal(rec.SubmissionB)
	if err != nil {
		return fmt.Errorf("marshal submission b: %w", err)
	}
	decided := rec.DecidedAt
	if decided.IsZero() {
		decided = time.Now().UTC()
	}

	q := `INSERT INTO match_verdicts (
        match_id, game, team_size, user_a, user_b, aligned, preferred, winner, tie_break,
        confidence, submission_a, submission_b, decided_at
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (match_id) DO UPDATE SET
        game=EXCLUDED.game,
        team_size=EXCLUDED.team_size,
        user_a=EXCLUDED.user_a,
        user_b=EXCLUDED.user_b,
        aligned=EXCLUDED.aligned,
        preferred=EXCLUDED.preferred,
        winner=EXCLUDED.winner,
        tie_break=EXCLUDED.tie_break,
        confidence=EXCLUDED.confidence,
        submission_a=EXCLUDED.submission_a,
        submission_b=EXCLUDED.submission_b,
        decided_at=EXCLUDED.decided_at`

	_, err = r.db.ExecContext(ctx, q,
		strings.TrimSpace(rec.MatchID), rec.Game, rec.TeamSize,
		rec.UserIDs[0], rec.UserIDs[1],
		rec.Verdict.Aligned, string(rec.Verdict.Preferred),
		nullString(string(rec.Verdict.Winner)), nullString(string(rec.Verdict.TieBreak)),
		rec.Verdict.Confidence, string(subA), string(subB), decided,
	)
	return err
}

func (r *Postgres) GetVerdict(ctx context.Context, matchID string) (*Record, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	q := `SELECT match_id, game, team_size, user_a, user_b, aligned, preferred, winner, tie_break,
        confidence, submission_a, submission_b, decided_at
      FROM match_verdicts WHERE match_id = $1`

	var (
		rec        Record
		preferred  string
		winner, tb sql.NullString
		subA, subB []byte
	)
	err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(matchID)).Scan(
		&rec.MatchID, &rec.Game, &rec.TeamSize, &rec.UserIDs[0], &rec.UserIDs[1], &rec.Verdict.Aligned, &preferred, &winner, &tb,
		&rec.Verdict.Confidence, &subA, &subB, &rec.DecidedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Verdict.Preferred = domain.Side(preferred)
	rec.Verdict.Winner = domain.Side(winner.String)
	rec.Verdict.TieBreak = domain.TieBreak(tb.String)
	if err := json.Unmarshal(subA, &rec.SubmissionA); err != nil {
		return nil, fmt.Errorf("decode submission a: %w", err)
	}
	if err := json.Unmarshal(subB, &rec.SubmissionB); err != nil {
		return nil, fmt.Errorf("decode submission b: %w", err)
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
