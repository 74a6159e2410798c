package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// rowQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRoleStore reads roles from the users table created by the
// embedded migrations.
type PostgresRoleStore struct {
	db            rowQuerier
	query         string
	slowThreshold time.Duration
	log           *zerolog.Logger
}

func NewPostgresRoleStore(db rowQuerier, roleField string, slowThreshold time.Duration, log *zerolog.Logger) *PostgresRoleStore {
	column := pgx.Identifier{roleField}.Sanitize()

	return &PostgresRoleStore{
		db:            db,
		query:         fmt.Sprintf("SELECT %s FROM users WHERE id = $1", column),
		slowThreshold: slowThreshold,
		log:           log,
	}
}

func (s *PostgresRoleStore) GetUserRecord(ctx context.Context, uid string) (*UserRecord, error) {
	start := time.Now()

	var role *string
	err := s.db.QueryRow(ctx, s.query, uid).Scan(&role)

	if elapsed := time.Since(start); s.slowThreshold > 0 && elapsed > s.slowThreshold && s.log != nil {
		s.log.Warn().
			Str("user_id", uid).
			Dur("duration", elapsed).
			Msg("slow role lookup")
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying role for %s: %w", uid, err)
	}

	record := &UserRecord{}
	if role != nil {
		record.Role = *role
	}
	return record, nil
}
