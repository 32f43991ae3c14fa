package store

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateParams() CreateUserParams {
	return CreateUserParams{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	}
}

func TestCreateUserParamsValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateUserParams)
		field   string
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(p *CreateUserParams) { p.Name = "" },
			field:   "name",
			message: "name is required",
		},
		{
			name:    "single word name",
			mutate:  func(p *CreateUserParams) { p.Name = "Ada" },
			field:   "name",
			message: "name must contain at least two words",
		},
		{
			name:    "missing email",
			mutate:  func(p *CreateUserParams) { p.Email = "" },
			field:   "email",
			message: "email is required",
		},
		{
			name:    "malformed email",
			mutate:  func(p *CreateUserParams) { p.Email = "not-an-email" },
			field:   "email",
			message: "invalid email address",
		},
		{
			name:    "short password",
			mutate:  func(p *CreateUserParams) { p.Password = "12345"; p.PasswordConfirm = "12345" },
			field:   "password",
			message: "password must be at least 6 characters",
		},
		{
			name:    "mismatched confirmation",
			mutate:  func(p *CreateUserParams) { p.PasswordConfirm = "different" },
			field:   "password_confirm",
			message: "passwords do not match",
		},
		{
			name:    "unknown role",
			mutate:  func(p *CreateUserParams) { p.Role = "superuser" },
			field:   "role",
			message: "role must be either user or admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validCreateParams()
			tt.mutate(&params)

			err := asValidationErrors(userValidate.Struct(params))
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.NotEmpty(t, verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Equal(t, tt.message, verrs[0].Message)
		})
	}
}

func TestCreateUserParamsValid(t *testing.T) {
	params := validCreateParams()
	require.NoError(t, userValidate.Struct(params))

	params.Role = "admin"
	require.NoError(t, userValidate.Struct(params))

	// three-word names pass the fullname rule too
	params.Name = "Ada King Lovelace"
	require.NoError(t, userValidate.Struct(params))
}

func TestUpdateUserParamsValidation(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		params  UpdateUserParams
		wantErr string
	}{
		{
			name:   "all nil fields pass",
			params: UpdateUserParams{},
		},
		{
			name:   "valid partial update",
			params: UpdateUserParams{Name: str("Grace Hopper"), Email: str("grace@example.com")},
		},
		{
			name:    "single word name rejected",
			params:  UpdateUserParams{Name: str("Grace")},
			wantErr: "name must contain at least two words",
		},
		{
			name:    "malformed email rejected",
			params:  UpdateUserParams{Email: str("nope")},
			wantErr: "invalid email address",
		},
		{
			name:    "short replacement password rejected",
			params:  UpdateUserParams{Password: str("12345")},
			wantErr: "password must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := asValidationErrors(userValidate.Struct(tt.params))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantErr, verrs[0].Message)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	verrs := ValidationErrors{
		{Field: "name", Message: "name is required"},
		{Field: "email", Message: "invalid email address"},
	}
	assert.Equal(t, "name is required, invalid email address", verrs.Error())
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: uniqueViolation}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}

func TestDuplicateEmailShape(t *testing.T) {
	verrs := duplicateEmail()
	require.Len(t, verrs, 1)
	assert.Equal(t, "email", verrs[0].Field)
	assert.Equal(t, "email is already registered", verrs[0].Message)
}
