package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()

	s := NewStatic(Identity{})
	_, ok := s.CurrentIdentity(ctx)
	assert.False(t, ok)

	s.SignIn(Identity{ID: "u1", Email: "ana@example.com"})
	id, ok := s.CurrentIdentity(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)

	s.SignOut()
	_, ok = s.CurrentIdentity(ctx)
	assert.False(t, ok)
}

func TestStatic_Concurrent(t *testing.T) {
	s := NewStatic(Identity{ID: "u1"})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.SignIn(Identity{ID: "u1"})
				return
			}
			s.CurrentIdentity(context.Background())
		}(i)
	}
	wg.Wait()
	_, ok := s.CurrentIdentity(context.Background())
	assert.True(t, ok)
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	want := Identity{ID: "3f1c1f9e-1111-4a4a-9c9c-000000000001", Email: "ana@example.com", FullName: "Ana Ruiz"}

	tok, err := IssueToken(want, secret, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := IssueToken(Identity{ID: "u1"}, secret, -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "got %v", err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken(Identity{ID: "u1"}, []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong"))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseToken_NoSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := IssueToken(Identity{}, secret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestJWTProvider(t *testing.T) {
	secret := []byte("secret")
	ctx := context.Background()
	p := NewJWT(secret, "", logging.Discard())

	_, ok := p.CurrentIdentity(ctx)
	assert.False(t, ok)

	tok, err := IssueToken(Identity{ID: "u1", FullName: "Ana"}, secret, time.Hour)
	require.NoError(t, err)
	p.SetToken(tok)
	id, ok := p.CurrentIdentity(ctx)
	require.True(t, ok)
	assert.Equal(t, "Ana", id.FullName)

	expired, err := IssueToken(Identity{ID: "u1"}, secret, -time.Minute)
	require.NoError(t, err)
	p.SetToken(expired)
	_, ok = p.CurrentIdentity(ctx)
	assert.False(t, ok)

	p.SetToken("not-a-jwt")
	_, ok = p.CurrentIdentity(ctx)
	assert.False(t, ok)
}
