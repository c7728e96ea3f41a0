package logstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func seedMixedHistory(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// Legacy rows: alias only, no numeric owner.
	for _, alias := range []string{"alice@example.com", "alice@example.com", "bob"} {
		require.NoError(t, s.Insert(ctx, &Entry{
			OwnerAlias: alias,
			URL:        "http://legacy.example.com/login",
			Prediction: 1,
		}))
	}
	// Post-migration rows carry both keys.
	require.NoError(t, s.Insert(ctx, &Entry{
		OwnerUserID: int64p(7),
		OwnerAlias:  "alice@example.com",
		URL:         "https://example.com/",
		Prediction:  0,
	}))
	// Anonymous row.
	require.NoError(t, s.Insert(ctx, &Entry{
		URL:        "https://nobody.example.com/",
		Prediction: NoModelPrediction,
	}))
}

func TestMemoryStoreUserScopeMergesLegacyRows(t *testing.T) {
	s := NewMemoryStore(false)
	seedMixedHistory(t, s)

	got, err := s.ListRecent(context.Background(), ForUser(7, []string{"alice@example.com"}), 50)
	require.NoError(t, err)
	require.Len(t, got, 3, "numeric-id row plus both legacy alias rows")

	// Newest first.
	assert.NotNil(t, got[0].OwnerUserID)
	assert.Equal(t, int64(7), *got[0].OwnerUserID)
	assert.Nil(t, got[1].OwnerUserID)
	assert.Equal(t, "alice@example.com", got[1].OwnerAlias)
}

func TestMemoryStoreAliasScope(t *testing.T) {
	s := NewMemoryStore(false)
	seedMixedHistory(t, s)

	got, err := s.ListRecent(context.Background(), ForAlias("bob"), 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].OwnerAlias)
}

func TestMemoryStoreAnonymousDefault(t *testing.T) {
	s := NewMemoryStore(false)
	require.NoError(t, s.Insert(context.Background(), &Entry{URL: "https://x.example/"}))

	got, err := s.ListRecent(context.Background(), All(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, AnonymousAlias, got[0].OwnerAlias)
	assert.NotZero(t, got[0].Timestamp)
}

func TestMemoryStoreDeleteScoped(t *testing.T) {
	s := NewMemoryStore(false)
	seedMixedHistory(t, s)

	n, err := s.DeleteScoped(context.Background(), ForUser(7, []string{"alice@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rest, err := s.ListRecent(context.Background(), All(), 50)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	for _, e := range rest {
		assert.NotEqual(t, "alice@example.com", e.OwnerAlias)
	}

	n, err = s.DeleteScoped(context.Background(), All())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStoreMasksStoredURL(t *testing.T) {
	masked := NewMemoryStore(false)
	require.NoError(t, masked.Insert(context.Background(), &Entry{
		URL: "https://phish.example.com/steal?session=abcdef",
	}))
	got, err := masked.ListRecent(context.Background(), All(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://phish.example.com... (masked)", got[0].URL)
	assert.Equal(t, got[0].URL, got[0].MaskedURL)

	full := NewMemoryStore(true)
	require.NoError(t, full.Insert(context.Background(), &Entry{
		URL: "https://phish.example.com/steal?session=abcdef",
	}))
	got, err = full.ListRecent(context.Background(), All(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://phish.example.com/steal?session=abcdef", got[0].URL)
	assert.Equal(t, "https://phish.example.com... (masked)", got[0].MaskedURL)
}

func TestMaskURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://example.com/path?q=1", "https://example.com... (masked)"},
		{"http://" + strings.Repeat("sub.", 15) + "example.com/x",
			"http://" + strings.Repeat("sub.", 10) + "... (masked)"},
		{"notaurl", "notaurl... (masked)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskURL(tc.in), tc.in)
	}
}

func TestListRecentRejectsBadLimit(t *testing.T) {
	s := NewMemoryStore(false)
	_, err := s.ListRecent(context.Background(), All(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
