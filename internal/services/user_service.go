package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/todozap/api/internal/models"
	"github.com/todozap/api/internal/phone"
)

type userServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewUserService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) UserService {
	return &userServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

const selectUserColumns = `
SELECT id,
       email,
       whatsapp_number,
       display_name,
       created_at,
       updated_at
FROM users
`

func scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.WhatsAppNumber,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) GetOrCreateByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.selectUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	now := time.Now()
	user = &models.User{
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	const insertUserQuery = `
INSERT INTO users (id,
                   email,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Email,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// A concurrent request created the user first.
			s.logger.Debug().
				Str("email", user.Email).
				Msg("lost get-or-create race, re-fetching user")
			return s.selectUserByEmail(ctx, email)
		}

		s.logger.Error().
			Err(err).
			Str("email", user.Email).
			Msg("failed to insert user")
		return nil, err
	}
	s.logger.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Msg("created user")
	return user, nil
}

func (s *userServiceImpl) ResolveByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	if strings.Contains(identifier, "@") {
		return s.selectUserByEmail(ctx, strings.ToLower(identifier))
	}
	return s.selectUserByWhatsAppNumber(ctx, phone.Digits(identifier))
}

func (s *userServiceImpl) ResolveByWhatsApp(ctx context.Context, remoteJid string) (*models.User, error) {
	clean := phone.FromJID(remoteJid)
	if clean == "" {
		return nil, ErrUserNotFound
	}

	for _, candidate := range phone.Candidates(clean) {
		user, err := s.selectUserByWhatsAppNumber(ctx, candidate)
		if err == nil {
			s.logger.Debug().
				Str("candidate", candidate).
				Str("user_id", user.ID).
				Msg("matched whatsapp number candidate")
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	const selectUserByAnyNumberQuery = selectUserColumns + `
WHERE whatsapp_number = ANY ($1)
LIMIT 1
`
	user, err := scanUser(s.pgPool.QueryRow(
		ctx,
		selectUserByAnyNumberQuery,
		phone.FallbackCandidates(clean),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info().
				Str("number", clean).
				Msg("no user for whatsapp number")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select user by whatsapp fallback candidates")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) SetWhatsAppNumber(ctx context.Context, email, number string) (*models.User, error) {
	user, err := s.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	const updateWhatsAppNumberQuery = `
UPDATE users
SET whatsapp_number = $1,
    updated_at = $2
WHERE id = $3
RETURNING email, display_name, created_at
`

	clean := phone.Digits(number)
	user.WhatsAppNumber = &clean
	user.UpdatedAt = time.Now()

	err = s.pgPool.QueryRow(
		ctx,
		updateWhatsAppNumberQuery,
		user.WhatsAppNumber,
		user.UpdatedAt,
		user.ID,
	).Scan(
		&user.Email,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to update whatsapp number")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("whatsapp_number", clean).
		Msg("updated whatsapp number")
	return user, nil
}

func (s *userServiceImpl) selectUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const selectUserByEmailQuery = selectUserColumns + `
WHERE lower(email) = $1
`
	user, err := scanUser(s.pgPool.QueryRow(ctx, selectUserByEmailQuery, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("email", email).
			Msg("failed to select user by email")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) selectUserByWhatsAppNumber(ctx context.Context, number string) (*models.User, error) {
	const selectUserByNumberQuery = selectUserColumns + `
WHERE whatsapp_number = $1
`
	user, err := scanUser(s.pgPool.QueryRow(ctx, selectUserByNumberQuery, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("whatsapp_number", number).
			Msg("failed to select user by whatsapp number")
		return nil, err
	}
	return user, nil
}
