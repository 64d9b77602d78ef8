package api

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"magnate/internal/persist"
)

var (
	ErrInvalidHandle   = errors.New("handle must be 3-24 letters, digits or underscores")
	ErrDuplicateHandle = errors.New("handle already taken")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSaveNotFound    = errors.New("no save stored for player")
)

var handleRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

type Player struct {
	ID     string `json:"player_id"`
	Handle string `json:"handle"`
	Token  string `json:"token,omitempty"`
}

type LeaderboardRow struct {
	Rank           int64  `json:"rank"`
	Handle         string `json:"handle"`
	Level          int    `json:"level"`
	NetWorthMicros int64  `json:"net_worth_micros"`
}

// Service is the sync-side store: player identities and one serialized
// aggregate per player, namespaced by device token.
type Service struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

func (s *Service) RegisterPlayer(ctx context.Context, handle string) (Player, error) {
	handle = strings.TrimSpace(handle)
	if !handleRE.MatchString(handle) {
		return Player{}, ErrInvalidHandle
	}
	p := Player{
		ID:     uuid.NewString(),
		Handle: handle,
		Token:  uuid.NewString(),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO players (id, handle, token)
		VALUES ($1, $2, $3)
	`, p.ID, p.Handle, p.Token)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Player{}, ErrDuplicateHandle
		}
		return Player{}, err
	}
	return p, nil
}

func (s *Service) PlayerByToken(ctx context.Context, token string) (Player, error) {
	var p Player
	err := s.db.QueryRow(ctx, `
		SELECT id, handle FROM players WHERE token = $1
	`, token).Scan(&p.ID, &p.Handle)
	if err == pgx.ErrNoRows {
		return Player{}, ErrUnauthorized
	}
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

func (s *Service) UpsertSave(ctx context.Context, playerID string, payload []byte, sum persist.Summary) (time.Time, error) {
	var lastUpdated time.Time
	err := s.db.QueryRow(ctx, `
		INSERT INTO saves (player_id, version, payload, balance_micros, net_worth_micros, level, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (player_id) DO UPDATE SET
			version          = EXCLUDED.version,
			payload          = EXCLUDED.payload,
			balance_micros   = EXCLUDED.balance_micros,
			net_worth_micros = EXCLUDED.net_worth_micros,
			level            = EXCLUDED.level,
			last_updated     = now()
		RETURNING last_updated
	`, playerID, persist.SnapshotVersion, payload, sum.BalanceMicros, sum.NetWorthMicros, sum.Level).Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}
	return lastUpdated, nil
}

func (s *Service) GetSave(ctx context.Context, playerID string) ([]byte, time.Time, error) {
	var payload []byte
	var lastUpdated time.Time
	err := s.db.QueryRow(ctx, `
		SELECT payload, last_updated FROM saves WHERE player_id = $1
	`, playerID).Scan(&payload, &lastUpdated)
	if err == pgx.ErrNoRows {
		return nil, time.Time{}, ErrSaveNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return payload, lastUpdated, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.Query(ctx, `
		SELECT p.handle, sv.level, sv.net_worth_micros
		FROM saves sv
		JOIN players p ON p.id = sv.player_id
		ORDER BY sv.net_worth_micros DESC, p.handle
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	var rank int64
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Handle, &r.Level, &r.NetWorthMicros); err != nil {
			return nil, err
		}
		rank++
		r.Rank = rank
		out = append(out, r)
	}
	return out, rows.Err()
}
