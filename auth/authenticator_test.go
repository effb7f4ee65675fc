package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/todoapi/metrics"
	"github.com/padraicbc/todoapi/store"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{32}$`)

func basic(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func newTestAuth(t *testing.T) (*Authenticator, *memStore) {
	t.Helper()
	s := newMemStore()
	return New(s, nil), s
}

func TestRegisterLoginAuthorize(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))

	token, err := a.Login(ctx, basic("alice", "secret1"))
	require.NoError(t, err)
	assert.Regexp(t, hexToken, token)

	u, err := s.FindBySessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)

	username, err := a.Authorize(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLogin_UniformFailure(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))

	_, unknownErr := a.Login(ctx, basic("mallory", "secret1"))
	_, wrongErr := a.Login(ctx, basic("alice", "secret2"))

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLogin_Malformed(t *testing.T) {
	a, _ := newTestAuth(t)
	cases := map[string]string{
		"empty":        "",
		"not base64":   "Basic !!!",
		"no separator": "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Login(context.Background(), header)
			assert.ErrorIs(t, err, ErrMalformedCredentials)
		})
	}
}

func TestLogin_RotatesToken(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))

	t1, err := a.Login(ctx, basic("alice", "secret1"))
	require.NoError(t, err)
	t2, err := a.Login(ctx, basic("alice", "secret1"))
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	_, err = a.Authorize(ctx, "Bearer "+t1)
	assert.ErrorIs(t, err, ErrInvalidSession)

	username, err := a.Authorize(ctx, "Bearer "+t2)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLogin_PasswordWithColon(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "bob", Password: "a:b:c"}))

	_, err := a.Login(ctx, basic("bob", "a:b:c"))
	assert.NoError(t, err)
}

func TestLogin_StoreUnavailable(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))

	s.fail(fmt.Errorf("find user: %w", store.ErrStoreUnavailable))
	_, err := a.Login(ctx, basic("alice", "secret1"))
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Duplicate(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))
	before, _ := s.FindByUsername(ctx, "alice")

	err := a.Register(ctx, RegisterRequest{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, store.ErrDuplicateUser)

	after, _ := s.FindByUsername(ctx, "alice")
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
}

func TestRegister_PaddedUsernameNotStored(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()

	require.ErrorIs(t, a.Register(ctx, RegisterRequest{Username: " alice ", Password: "secret1"}), ErrInvalidRegistration)
	u, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLogin_UnknownUserCostMatchesStoreCost(t *testing.T) {
	if testing.Short() {
		t.Skip("bcrypt timing test")
	}
	const cost = 11

	s := newMemStore()
	s.cost = cost
	a := New(s, nil, WithCost(cost))
	ctx := context.Background()
	require.NoError(t, a.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"}))

	// The first unknown-user login builds the dummy hash.
	_, err := a.Login(ctx, basic("mallory", "nope"))
	require.ErrorIs(t, err, ErrInvalidCredentials)

	timeLogin := func(username string) time.Duration {
		var total time.Duration
		for i := 0; i < 3; i++ {
			start := time.Now()
			_, err := a.Login(ctx, basic(username, "nope"))
			total += time.Since(start)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
		return total
	}
	unknown := timeLogin("mallory")
	wrong := timeLogin("alice")

	ratio := float64(wrong) / float64(unknown)
	assert.InDelta(t, 1.0, ratio, 0.6, "unknown=%v wrong=%v", unknown, wrong)
}

func TestRegister_Invalid(t *testing.T) {
	a, _ := newTestAuth(t)
	long := make([]byte, maxPasswordBytes+1)
	for i := range long {
		long[i] = 'p'
	}
	cases := map[string]RegisterRequest{
		"empty username": {Username: "  ", Password: "x"},
		"empty password": {Username: "alice"},
		"colon":          {Username: "al:ice", Password: "x"},
		"padded":         {Username: " alice", Password: "x"},
		"trailing space": {Username: "alice\t", Password: "x"},
		"long password":  {Username: "alice", Password: string(long)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, a.Register(context.Background(), req), ErrInvalidRegistration)
		})
	}
}

func TestAuthorize(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()

	_, err := a.Authorize(ctx, "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = a.Authorize(ctx, "Basic abc")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = a.Authorize(ctx, "Bearer   ")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = a.Authorize(ctx, "Bearer wrong")
	assert.ErrorIs(t, err, ErrInvalidSession)

	s.fail(store.ErrStoreUnavailable)
	_, err = a.Authorize(ctx, "Bearer wrong")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestAuthorize_TokenCollision(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "alice", "p"))
	require.NoError(t, s.Register(ctx, "bob", "p"))
	require.NoError(t, s.SetSessionToken(ctx, "alice", "same"))
	require.NoError(t, s.SetSessionToken(ctx, "bob", "same"))

	_, err := a.Authorize(ctx, "Bearer same")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthMetrics(t *testing.T) {
	a, _ := newTestAuth(t)
	c := metrics.AuthAttempts.WithLabelValues("authorize", "bad_request")
	before := testutil.ToFloat64(c)

	_, _ = a.Authorize(context.Background(), "")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
