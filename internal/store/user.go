package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shoplite/apiserver/internal/cryptox"
	"github.com/shoplite/apiserver/types"
)

// uniqueViolation is the postgres error code raised when a write breaks
// a unique index.
const uniqueViolation = "23505"

var userValidate = newUserValidator()

func newUserValidator() *validator.Validate {
	v := validator.New()
	// fullname requires at least two space-separated words
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return len(strings.Fields(fl.Field().String())) >= 2
	})
	return v
}

// CreateUserParams carries the fields validated and persisted on
// signup. Password and PasswordConfirm are transient plaintext; only
// the bcrypt hash reaches the database.
type CreateUserParams struct {
	Name            string `validate:"required,fullname"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
	Role            string `validate:"omitempty,oneof=user admin"`
	AvatarPath      string
}

// UpdateUserParams carries a partial update. Nil fields are left
// unchanged; a non-nil Password re-hashes the stored credential.
type UpdateUserParams struct {
	Name       *string `validate:"omitempty,fullname"`
	Email      *string `validate:"omitempty,email"`
	AvatarPath *string
	Password   *string `validate:"omitempty,min=6"`
}

// UserRepository handles persistence for user accounts and enforces the
// account schema's write-time rules. Plaintext passwords are hashed on
// the write path before they reach the database.
type UserRepository struct {
	db     *sql.DB
	hasher cryptox.Hasher
}

func NewUserRepository(db *sql.DB, hasher cryptox.Hasher) *UserRepository {
	return &UserRepository{db: db, hasher: hasher}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT id, name, email, role, avatar_path, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, role, avatar_path, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create validates params, hashes the password, and inserts the
// account. A duplicate email is reported as ValidationErrors whether it
// is caught by the pre-check or by the unique index, so concurrent
// signups for one address leave exactly one account behind.
func (r *UserRepository) Create(ctx context.Context, params CreateUserParams) (types.User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Email = strings.TrimSpace(params.Email)

	if err := userValidate.Struct(params); err != nil {
		return types.User{}, asValidationErrors(err)
	}

	if _, err := r.GetByEmail(ctx, params.Email); err == nil {
		return types.User{}, duplicateEmail()
	} else if !errors.Is(err, ErrNotFound) {
		return types.User{}, err
	}

	hash, err := r.hasher.Hash(params.Password)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now()
	user := types.User{
		ID:           uuid.NewString(),
		Name:         params.Name,
		Email:        params.Email,
		Role:         params.Role,
		AvatarPath:   params.AvatarPath,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	if user.AvatarPath == "" {
		user.AvatarPath = types.DefaultAvatarPath
	}

	const query = `
		INSERT INTO users (id, name, email, role, avatar_path, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.AvatarPath,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, duplicateEmail()
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateByID applies params to the account in a single transaction. The
// row is locked for the read-modify-write, so concurrent updates of one
// account serialize here and the final state is one writer's outcome.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, params UpdateUserParams) (types.User, error) {
	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		params.Name = &trimmed
	}
	if params.Email != nil {
		trimmed := strings.TrimSpace(*params.Email)
		params.Email = &trimmed
	}

	if err := userValidate.Struct(params); err != nil {
		return types.User{}, asValidationErrors(err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const selectQuery = `
		SELECT id, name, email, role, avatar_path, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE`
	user, err := r.scanUser(tx.QueryRowContext(ctx, selectQuery, id))
	if err != nil {
		return types.User{}, err
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.AvatarPath != nil {
		user.AvatarPath = *params.AvatarPath
	}
	if params.Password != nil {
		hash, err := r.hasher.Hash(*params.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	const updateQuery = `
		UPDATE users
		SET name = $1,
			email = $2,
			avatar_path = $3,
			password_hash = $4,
			updated_at = $5
		WHERE id = $6`
	if _, err := tx.ExecContext(
		ctx,
		updateQuery,
		user.Name,
		user.Email,
		user.AvatarPath,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, duplicateEmail()
		}
		return types.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.AvatarPath,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func duplicateEmail() ValidationErrors {
	return ValidationErrors{{Field: "email", Message: "email is already registered"}}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// asValidationErrors translates validator failures into the store's
// per-field messages. Unexpected error shapes pass through unchanged.
func asValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldName(fe.Field()), Message: fieldMessage(fe)})
	}
	return out
}

func fieldName(field string) string {
	switch field {
	case "PasswordConfirm":
		return "password_confirm"
	case "AvatarPath":
		return "avatar_path"
	default:
		return strings.ToLower(field)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "required" {
			return "name is required"
		}
		return "name must contain at least two words"
	case "Email":
		if fe.Tag() == "required" {
			return "email is required"
		}
		return "invalid email address"
	case "Password":
		if fe.Tag() == "required" {
			return "password is required"
		}
		return "password must be at least 6 characters"
	case "PasswordConfirm":
		if fe.Tag() == "required" {
			return "password confirmation is required"
		}
		return "passwords do not match"
	case "Role":
		return "role must be either user or admin"
	default:
		return "invalid value for " + fieldName(fe.Field())
	}
}
