package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shoplite/apiserver/internal/cryptox"
	"github.com/shoplite/apiserver/internal/events"
	"github.com/shoplite/apiserver/internal/mq"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/internal/token"
	"github.com/shoplite/apiserver/types"
)

// fakeUserRepo mirrors the store's write semantics in memory. Passwords
// are hashed on create and on password updates, and a duplicate email
// is reported the same way the real repository reports it.
type fakeUserRepo struct {
	hasher cryptox.Hasher
	users  map[string]types.User
	nextID int
}

func newFakeUserRepo(hasher cryptox.Hasher) *fakeUserRepo {
	return &fakeUserRepo{hasher: hasher, users: make(map[string]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, params store.CreateUserParams) (types.User, error) {
	if _, err := f.GetByEmail(ctx, params.Email); err == nil {
		return types.User{}, store.ValidationErrors{{Field: "email", Message: "email is already registered"}}
	}

	hash, err := f.hasher.Hash(params.Password)
	if err != nil {
		return types.User{}, err
	}

	f.nextID++
	now := time.Now()
	user := types.User{
		ID:           fmt.Sprintf("user-%d", f.nextID),
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
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateByID(_ context.Context, id string, params store.UpdateUserParams) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
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
		hash, err := f.hasher.Hash(*params.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()
	f.users[id] = user
	return user, nil
}

type fakeOrderRepo struct {
	orders map[string][]types.Order
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]types.Order, error) {
	return f.orders[userID], nil
}

type memoryBackend struct {
	objects map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[string][]byte)}
}

func (m *memoryBackend) EnsureBucket(context.Context) error { return nil }

func (m *memoryBackend) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "test" }

type recordingBroker struct {
	channels []string
	attrs    []map[string]string
}

func (r *recordingBroker) Publish(_ context.Context, channel string, _ []byte, attrs map[string]string) (string, error) {
	r.channels = append(r.channels, channel)
	r.attrs = append(r.attrs, attrs)
	return "msg-1", nil
}

func (r *recordingBroker) Subscribe(context.Context, string, mq.Handler) error { return nil }

func (r *recordingBroker) Close() error { return nil }

type accountFixture struct {
	service *AccountService
	users   *fakeUserRepo
	orders  *fakeOrderRepo
	broker  *recordingBroker
	backend *memoryBackend
	issuer  *token.Issuer
}

func newAccountFixture(t *testing.T, withStorage bool) *accountFixture {
	t.Helper()

	hasher := cryptox.NewHasher(bcrypt.MinCost)
	issuer, err := token.New("test-secret", time.Hour)
	require.NoError(t, err)

	users := newFakeUserRepo(hasher)
	orders := &fakeOrderRepo{orders: make(map[string][]types.Order)}
	broker := &recordingBroker{}
	publisher := events.NewPublisher(broker, nil)

	// a typed nil backend would not compare equal to nil through the
	// interface, so the two cases construct the service separately
	var backend *memoryBackend
	var service *AccountService
	if withStorage {
		backend = newMemoryBackend()
		service = NewAccountService(users, orders, hasher, issuer, publisher, backend)
	} else {
		service = NewAccountService(users, orders, hasher, issuer, publisher, nil)
	}

	return &accountFixture{
		service: service,
		users:   users,
		orders:  orders,
		broker:  broker,
		backend: backend,
		issuer:  issuer,
	}
}

func registerParams() store.CreateUserParams {
	return store.CreateUserParams{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	}
}

func TestRegisterIssuesSession(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, sessionToken, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.Equal(t, types.DefaultAvatarPath, user.AvatarPath)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	userID, err := fx.issuer.Verify(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	require.Len(t, fx.broker.channels, 1)
	assert.Equal(t, events.ChannelUserEvents, fx.broker.channels[0])
	assert.Equal(t, events.TypeUserRegistered, fx.broker.attrs[0]["type"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	fx := newAccountFixture(t, false)

	_, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	_, _, err = fx.service.Register(context.Background(), registerParams())
	var verrs store.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "email", verrs[0].Field)

	// only the first registration publishes an event
	assert.Len(t, fx.broker.channels, 1)
}

func TestSignIn(t *testing.T) {
	fx := newAccountFixture(t, false)

	registered, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	user, sessionToken, err := fx.service.SignIn(context.Background(), "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	userID, err := fx.issuer.Verify(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)
}

func TestSignInMissingFields(t *testing.T) {
	fx := newAccountFixture(t, false)

	for _, creds := range [][2]string{{"", "secret123"}, {"ada@example.com", ""}, {"", ""}} {
		_, _, err := fx.service.SignIn(context.Background(), creds[0], creds[1])
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, 400, svcErr.Status)
		assert.Equal(t, "please provide email and password", svcErr.Message)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	fx := newAccountFixture(t, false)

	_, _, err := fx.service.SignIn(context.Background(), "nobody@example.com", "secret123")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
	assert.Equal(t, "invalid email", svcErr.Message)
}

func TestSignInWrongPassword(t *testing.T) {
	fx := newAccountFixture(t, false)

	_, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	_, _, err = fx.service.SignIn(context.Background(), "ada@example.com", "wrong-pass")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
	assert.Equal(t, "wrong password", svcErr.Message)
}

func TestProfile(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	fx.orders.orders[user.ID] = []types.Order{
		{ID: "order-1", UserID: user.ID, TotalCents: 12999, Status: types.OrderStatusShipped},
	}

	profile, orders, err := fx.service.Profile(context.Background(), user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Nil(t, orders)

	profile, orders, err = fx.service.Profile(context.Background(), user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)
}

func TestProfileUnknownUser(t *testing.T) {
	fx := newAccountFixture(t, false)

	_, _, err := fx.service.Profile(context.Background(), "missing", false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProfileFields(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)
	originalHash := user.PasswordHash

	name := "Ada King"
	email := "ada.king@example.com"
	updated, err := fx.service.UpdateProfile(context.Background(), user.ID, UpdateProfileParams{
		Name:  &name,
		Email: &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "ada.king@example.com", updated.Email)
	assert.Equal(t, originalHash, updated.PasswordHash)

	// no password change, so no rotation event
	assert.Len(t, fx.broker.channels, 1)
}

func TestUpdateProfileRotatesPassword(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)
	originalHash := user.PasswordHash

	updated, err := fx.service.UpdateProfile(context.Background(), user.ID, UpdateProfileParams{
		Password:    "secret123",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)

	_, _, err = fx.service.SignIn(context.Background(), "ada@example.com", "brand-new-pass")
	require.NoError(t, err)

	_, _, err = fx.service.SignIn(context.Background(), "ada@example.com", "secret123")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "wrong password", svcErr.Message)

	require.Len(t, fx.broker.channels, 2)
	assert.Equal(t, events.TypePasswordChanged, fx.broker.attrs[1]["type"])
}

func TestUpdateProfileRejectsWrongCurrentPassword(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)
	originalHash := user.PasswordHash

	_, err = fx.service.UpdateProfile(context.Background(), user.ID, UpdateProfileParams{
		Password:    "not-the-password",
		NewPassword: "brand-new-pass",
	})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
	assert.Equal(t, "wrong password", svcErr.Message)

	assert.Equal(t, originalHash, fx.users.users[user.ID].PasswordHash)
}

func TestUpdateProfileRequiresBothPasswords(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	for _, params := range []UpdateProfileParams{
		{Password: "secret123"},
		{NewPassword: "brand-new-pass"},
	} {
		_, err := fx.service.UpdateProfile(context.Background(), user.ID, params)
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "please provide current and new password", svcErr.Message)
	}
}

func TestUpdateAvatarWithoutStorage(t *testing.T) {
	fx := newAccountFixture(t, false)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	_, err = fx.service.UpdateAvatar(context.Background(), user.ID, "image/png", []byte{1, 2, 3})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 503, svcErr.Status)
	assert.Equal(t, "avatar storage is not configured", svcErr.Message)
}

func TestUpdateAvatarStoresImage(t *testing.T) {
	fx := newAccountFixture(t, true)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	updated, err := fx.service.UpdateAvatar(context.Background(), user.ID, "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "avatars/"+user.ID, updated.AvatarPath)
	assert.Equal(t, []byte("png-bytes"), fx.backend.objects["avatars/"+user.ID])

	rc, err := fx.service.Avatar(context.Background(), user.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestAvatarWithoutUpload(t *testing.T) {
	fx := newAccountFixture(t, true)

	user, _, err := fx.service.Register(context.Background(), registerParams())
	require.NoError(t, err)

	_, err = fx.service.Avatar(context.Background(), user.ID)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)
	assert.Equal(t, "no avatar uploaded", svcErr.Message)
}
