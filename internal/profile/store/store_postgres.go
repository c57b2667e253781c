package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"homehelp/internal/profile/models"
	id "homehelp/pkg/domain"
)

const uniqueViolation = "23505"

// PostgresStore is the production profile store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed profile store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `
	id, class, owner_user_id, government_id, status, verified_at,
	name, care_of, date_of_birth, year_of_birth, gender, photo,
	full_address, address, legacy_address, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	address, legacy, err := marshalAddresses(profile)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identity_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(profile.ID), string(profile.Class), uuid.UUID(profile.OwnerUserID),
		profile.GovernmentID, string(profile.Status), profile.VerifiedAt,
		profile.Name, profile.CareOf, profile.DateOfBirth, profile.YearOfBirth,
		profile.Gender, profile.Photo, profile.FullAddress,
		address, legacy, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	address, legacy, err := marshalAddresses(profile)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE identity_profiles SET
			government_id = $2, status = $3, verified_at = $4,
			name = $5, care_of = $6, date_of_birth = $7, year_of_birth = $8,
			gender = $9, photo = $10, full_address = $11,
			address = $12, legacy_address = $13, updated_at = $14
		WHERE id = $1`,
		uuid.UUID(profile.ID), profile.GovernmentID, string(profile.Status), profile.VerifiedAt,
		profile.Name, profile.CareOf, profile.DateOfBirth, profile.YearOfBirth,
		profile.Gender, profile.Photo, profile.FullAddress,
		address, legacy, profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM identity_profiles WHERE id = $1`, uuid.UUID(profileID))
	return scanProfile(row)
}

func (s *PostgresStore) GetByUser(ctx context.Context, userID id.UserID, class models.Class) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM identity_profiles WHERE owner_user_id = $1 AND class = $2`,
		uuid.UUID(userID), string(class))
	return scanProfile(row)
}

func (s *PostgresStore) GetByGovernmentID(ctx context.Context, class models.Class, governmentID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM identity_profiles WHERE class = $1 AND government_id = $2`,
		string(class), governmentID)
	return scanProfile(row)
}

func marshalAddresses(profile *models.Profile) ([]byte, []byte, error) {
	address, err := json.Marshal(profile.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal address: %w", err)
	}
	legacy, err := json.Marshal(profile.Legacy)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal legacy address: %w", err)
	}
	return address, legacy, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		profile         models.Profile
		profileID       uuid.UUID
		ownerUserID     uuid.UUID
		class, status   string
		address, legacy []byte
	)

	err := row.Scan(
		&profileID, &class, &ownerUserID, &profile.GovernmentID, &status, &profile.VerifiedAt,
		&profile.Name, &profile.CareOf, &profile.DateOfBirth, &profile.YearOfBirth,
		&profile.Gender, &profile.Photo, &profile.FullAddress,
		&address, &legacy, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	profile.ID = id.ProfileID(profileID)
	profile.OwnerUserID = id.UserID(ownerUserID)
	profile.Class = models.Class(class)
	profile.Status = models.Status(status)

	if err := json.Unmarshal(address, &profile.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	if err := json.Unmarshal(legacy, &profile.Legacy); err != nil {
		return nil, fmt.Errorf("unmarshal legacy address: %w", err)
	}
	return &profile, nil
}
