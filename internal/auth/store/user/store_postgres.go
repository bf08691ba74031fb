package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"takenotes/internal/auth/models"
	id "takenotes/pkg/domain"
	"takenotes/pkg/platform/sentinel"
	"takenotes/pkg/platform/tx"
)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, date_of_birth, password_hash,
	provider, google_id, verified, created_at, updated_at`

// PostgresStore persists users in PostgreSQL. Email uniqueness is enforced by
// a unique index on lower(email).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidState)
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.FirstName,
		user.LastName,
		user.Email,
		nullDate(user.DateOfBirth),
		nullString(user.PasswordHash),
		string(user.Provider),
		nullString(user.GoogleID),
		user.Verified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanOne(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanOne(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, email))
}

// ActivateUnverified locks the row and updates it only while it is still
// unverified, so a concurrent activation or federated sign-in cannot be
// overwritten.
func (s *PostgresStore) ActivateUnverified(ctx context.Context, user *models.User) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Exec(ctx, s.db)

		var verified bool
		err := exec.QueryRowContext(ctx, `SELECT verified FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(user.ID)).Scan(&verified)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock user: %w", err)
		}
		if verified {
			return fmt.Errorf("user already verified: %w", sentinel.ErrConflict)
		}

		query := `
			UPDATE users
			SET first_name = $2, last_name = $3, date_of_birth = $4, password_hash = $5,
				provider = $6, verified = TRUE, updated_at = $7
			WHERE id = $1
		`
		_, err = exec.ExecContext(ctx, query,
			uuid.UUID(user.ID),
			user.FirstName,
			user.LastName,
			nullDate(user.DateOfBirth),
			nullString(user.PasswordHash),
			string(user.Provider),
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.User, error) {
	var (
		rawID        uuid.UUID
		dob          sql.NullTime
		passwordHash sql.NullString
		provider     string
		googleID     sql.NullString
		u            models.User
	)
	err := row.Scan(&rawID, &u.FirstName, &u.LastName, &u.Email, &dob, &passwordHash,
		&provider, &googleID, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Provider = models.Provider(provider)
	u.PasswordHash = passwordHash.String
	u.GoogleID = googleID.String
	if dob.Valid {
		d := dob.Time.UTC()
		u.DateOfBirth = &d
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
