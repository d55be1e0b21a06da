package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mbeoliero/relay/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseSessionToken(t *testing.T) {
	token := signToken(t, Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	sess, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-alice", sess.UserId)
	assert.Equal(t, "alice@example.com", sess.Email)
	assert.Equal(t, token, sess.Token)
}

func TestParseSessionToken_NoExpiry(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-alice"},
	})

	sess, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-alice", sess.UserId)
}

func TestParseSessionToken_Expired(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := ParseSessionToken(token)
	require.Error(t, err)
	var e *errcode.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errcode.ErrTokenExpired.Code, e.Code)
}

func TestParseSessionToken_MissingSubject(t *testing.T) {
	token := signToken(t, Claims{Email: "alice@example.com"})

	_, err := ParseSessionToken(token)
	require.Error(t, err)
	var e *errcode.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errcode.ErrTokenInvalid.Code, e.Code)
}

func TestParseSessionToken_Garbage(t *testing.T) {
	_, err := ParseSessionToken("not-a-jwt")
	require.Error(t, err)
}

func TestManager_RestoreAndSignOut(t *testing.T) {
	token := signToken(t, Claims{
		Email:            "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-alice"},
	})

	m := NewManager(nil)

	var published []*Session
	m.OnChange(func(s *Session) {
		published = append(published, s)
	})

	sess, err := m.Restore(token)
	require.NoError(t, err)
	assert.Equal(t, sess, m.Current())

	m.SignOut()
	assert.Nil(t, m.Current())

	require.Len(t, published, 2)
	assert.Equal(t, "user-alice", published[0].UserId)
	assert.Nil(t, published[1])
}

func TestManager_RestoreBadTokenKeepsState(t *testing.T) {
	m := NewManager(nil)

	fired := 0
	m.OnChange(func(*Session) { fired++ })

	_, err := m.Restore("garbage")
	require.Error(t, err)
	assert.Nil(t, m.Current())
	assert.Zero(t, fired)
}

func TestManager_SignInWithoutAuthClient(t *testing.T) {
	m := NewManager(nil)

	_, err := m.SignIn(context.Background(), "alice@example.com", "pw")
	require.Error(t, err)
}
