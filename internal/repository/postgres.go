package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-auth/internal/model"
)

const uniqueViolation = "23505"

// invalidTextRepresentation is raised when an id is not a uuid.
const invalidTextRepresentation = "22P02"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

const accountColumns = `id, email, password_hash, is_verified, role, otp_secret, created_at, updated_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsVerified, &a.Role, &a.OTPSecret, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func (s *PostgresStore) FindAccountByID(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return model.Account{}, fmt.Errorf("find account %s: %w", id, model.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find account by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, fmt.Errorf("find account by email: %w", model.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		`INSERT INTO accounts (id, email, password_hash, is_verified, role, otp_secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+accountColumns,
		account.ID, account.Email, account.PasswordHash, account.IsVerified, account.Role,
		account.OTPSecret, account.CreatedAt, account.UpdatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Account{}, fmt.Errorf("create account: %w", model.ErrAccountExists)
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, accountID string, fullName string) (model.Profile, error) {
	var p model.Profile
	now := time.Now().UTC()
	err := s.db.QueryRow(ctx,
		`INSERT INTO profiles (account_id, full_name, avatar, created_at, updated_at)
		 VALUES ($1, $2, '', $3, $3)
		 RETURNING account_id, full_name, avatar, created_at, updated_at`,
		accountID, fullName, now).
		Scan(&p.AccountID, &p.FullName, &p.Avatar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindProfile(ctx context.Context, accountID string) (model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRow(ctx,
		`SELECT account_id, full_name, avatar, created_at, updated_at
		 FROM profiles WHERE account_id = $1`, accountID).
		Scan(&p.AccountID, &p.FullName, &p.Avatar, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return model.Profile{}, fmt.Errorf("find profile %s: %w", accountID, model.ErrProfileNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateAccountSecret(ctx context.Context, id string, passwordHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update account secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update account secret %s: %w", id, model.ErrAccountNotFound)
	}
	return nil
}

func (s *PostgresStore) MarkVerified(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET is_verified = true, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark account verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark account verified %s: %w", id, model.ErrAccountNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertChallenge(ctx context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO otp_challenges (account_id, code, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		challenge.AccountID, challenge.Code, challenge.CreatedAt, challenge.ExpiresAt).
		Scan(&challenge.ID)
	if err != nil {
		return model.OTPChallenge{}, fmt.Errorf("insert otp challenge: %w", err)
	}
	return challenge, nil
}

func (s *PostgresStore) FindLatestUnexpiredChallenge(ctx context.Context, accountID string, now time.Time) (model.OTPChallenge, error) {
	var c model.OTPChallenge
	err := s.db.QueryRow(ctx,
		`SELECT id, account_id, code, created_at, expires_at
		 FROM otp_challenges
		 WHERE account_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, accountID, now).
		Scan(&c.ID, &c.AccountID, &c.Code, &c.CreatedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.OTPChallenge{}, model.ErrChallengeNotFound
	}
	if err != nil {
		return model.OTPChallenge{}, fmt.Errorf("find latest otp challenge: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteChallenge(ctx context.Context, accountID string, code string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM otp_challenges WHERE account_id = $1 AND code = $2`, accountID, code)
	if err != nil {
		return fmt.Errorf("delete otp challenge: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteChallengeByID(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete otp challenge %d: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: s.pool, db: tx, inTx: true})
	})
}
