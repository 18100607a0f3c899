package tokens

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return &Issuer{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    72 * time.Hour,
	}
}

func TestMint_AccessClaimsRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	userID := uuid.NewString()

	pair, err := issuer.Mint(userID, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := AccessClaimsFromToken(pair.AccessToken, issuer.AccessSecret)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, pair.AccessExp, claims.ExpiresAt.Time, time.Second)
}

func TestMint_RefreshClaimsRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	userID := uuid.NewString()

	pair, err := issuer.Mint(userID, "user")
	require.NoError(t, err)

	claims, err := RefreshClaimsFromToken(pair.RefreshToken, issuer.RefreshSecret)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.Subject)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, pair.RefreshExp, claims.ExpiresAt.Time, time.Second)
}

func TestMint_DistinctSecretsPerToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	pair, err := issuer.Mint(uuid.NewString(), "user")
	require.NoError(t, err)

	// An access token must not verify against the refresh secret and
	// vice versa.
	_, err = AccessClaimsFromToken(pair.AccessToken, issuer.RefreshSecret)
	require.Error(t, err)

	_, err = RefreshClaimsFromToken(pair.RefreshToken, issuer.AccessSecret)
	require.Error(t, err)
}

func TestAccessClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	issuer.AccessTTL = -time.Minute

	pair, err := issuer.Mint(uuid.NewString(), "user")
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(pair.AccessToken, issuer.AccessSecret)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessClaimsFromToken_Garbage(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	claims, err := AccessClaimsFromToken("not-a-jwt", issuer.AccessSecret)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	issuer.RefreshTTL = -time.Minute

	pair, err := issuer.Mint(uuid.NewString(), "user")
	require.NoError(t, err)

	claims, err := RefreshClaimsFromToken(pair.RefreshToken, issuer.RefreshSecret)
	require.Error(t, err)
	assert.Nil(t, claims)
}
