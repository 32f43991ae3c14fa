package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/shoplite/apiserver/internal/cryptox"
	"github.com/shoplite/apiserver/internal/events"
	"github.com/shoplite/apiserver/internal/storage"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/internal/token"
	"github.com/shoplite/apiserver/types"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, params store.CreateUserParams) (types.User, error)
	UpdateByID(ctx context.Context, id string, params store.UpdateUserParams) (types.User, error)
}

// OrderRepository is consulted when a profile response includes the
// account's purchase history.
type OrderRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Order, error)
}

// UpdateProfileParams carries a profile update request. Nil Name and
// Email are left unchanged. Rotating the credential requires both the
// current plaintext password and its replacement.
type UpdateProfileParams struct {
	Name        *string
	Email       *string
	Password    string
	NewPassword string
}

// AccountService encapsulates registration, credential verification,
// session issuance, and profile maintenance.
type AccountService struct {
	users   UserRepository
	orders  OrderRepository
	hasher  cryptox.Hasher
	issuer  *token.Issuer
	events  *events.Publisher
	storage storage.Backend
}

func NewAccountService(
	users UserRepository,
	orders OrderRepository,
	hasher cryptox.Hasher,
	issuer *token.Issuer,
	publisher *events.Publisher,
	backend storage.Backend,
) *AccountService {
	return &AccountService{
		users:   users,
		orders:  orders,
		hasher:  hasher,
		issuer:  issuer,
		events:  publisher,
		storage: backend,
	}
}

// Register creates the account and issues a session token for it, so a
// fresh signup is signed in immediately.
func (s *AccountService) Register(ctx context.Context, params store.CreateUserParams) (types.User, string, error) {
	user, err := s.users.Create(ctx, params)
	if err != nil {
		return types.User{}, "", err
	}

	sessionToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		return types.User{}, "", err
	}

	s.events.UserRegistered(ctx, user)
	return user, sessionToken, nil
}

// SignIn verifies the credentials and issues a session token. The
// failure messages distinguish an unknown email from a wrong password;
// storefront clients depend on the distinction.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (types.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, "", badRequest("please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", badRequest("invalid email")
		}
		return types.User{}, "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return types.User{}, "", badRequest("wrong password")
	}

	sessionToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		return types.User{}, "", err
	}

	return user, sessionToken, nil
}

// UserByID loads an account by id. Used by the session middleware to
// re-derive the caller on every request.
func (s *AccountService) UserByID(ctx context.Context, id string) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

// Profile returns the account, optionally enriched with its orders.
func (s *AccountService) Profile(ctx context.Context, userID string, includeOrders bool) (types.User, []types.Order, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, nil, err
	}

	if !includeOrders {
		return user, nil, nil
	}

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return types.User{}, nil, err
	}
	return user, orders, nil
}

// UpdateProfile applies params to the account. Changing the password
// requires the live current password even though the caller already
// holds a valid session.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (types.User, error) {
	update := store.UpdateUserParams{
		Name:  params.Name,
		Email: params.Email,
	}

	if params.Password != "" || params.NewPassword != "" {
		if params.Password == "" || params.NewPassword == "" {
			return types.User{}, badRequest("please provide current and new password")
		}

		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return types.User{}, err
		}
		if !s.hasher.Verify(params.Password, user.PasswordHash) {
			return types.User{}, badRequest("wrong password")
		}

		update.Password = &params.NewPassword
	}

	updated, err := s.users.UpdateByID(ctx, userID, update)
	if err != nil {
		return types.User{}, err
	}

	if update.Password != nil {
		s.events.PasswordChanged(ctx, updated)
	}
	return updated, nil
}

// UpdateAvatar stores the uploaded image and points the profile at it.
// Requires a configured object storage backend.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID, contentType string, data []byte) (types.User, error) {
	if s.storage == nil {
		return types.User{}, unavailable("avatar storage is not configured")
	}
	if len(data) == 0 {
		return types.User{}, badRequest("avatar file is empty")
	}

	key := avatarObjectKey(userID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.User{}, err
	}

	return s.users.UpdateByID(ctx, userID, store.UpdateUserParams{AvatarPath: &key})
}

// Avatar streams the account's stored avatar image. Accounts still on
// the placeholder have no stored object to serve.
func (s *AccountService) Avatar(ctx context.Context, userID string) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, unavailable("avatar storage is not configured")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AvatarPath == types.DefaultAvatarPath {
		return nil, notFound("no avatar uploaded")
	}

	return s.storage.Download(ctx, user.AvatarPath)
}

func avatarObjectKey(userID string) string {
	return "avatars/" + userID
}
