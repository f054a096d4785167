package node

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/nodeprep/internal/util/retry"
)

func sha256hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestFetch_VerifiesAndWrites(t *testing.T) {
	t.Parallel()
	payload := []byte("driver installer bits")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()
	dest := filepath.Join(t.TempDir(), "driver.run")

	err := NewFetcher().Fetch(context.Background(), srv.URL, sha256hex(payload), dest)

	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetch_ChecksumMismatchIsFatal(t *testing.T) {
	t.Parallel()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		_, _ = w.Write([]byte("tampered bits"))
	}))
	defer srv.Close()
	dest := filepath.Join(t.TempDir(), "driver.run")

	err := NewFetcher().Fetch(context.Background(), srv.URL, sha256hex([]byte("expected bits")), dest)

	require.ErrorIs(t, err, ErrChecksumMismatch)
	// Fatal: exactly one attempt, no retries on an integrity failure.
	assert.Equal(t, 1, requests)
	// The tainted download never survives.
	_, serr := os.Stat(dest)
	assert.True(t, os.IsNotExist(serr))
	_, serr = os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(serr))
}

func TestFetch_NoPinnedChecksumRefused(t *testing.T) {
	t.Parallel()
	err := NewFetcher().Fetch(context.Background(), "http://example.invalid/a", "", filepath.Join(t.TempDir(), "a"))

	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))
}

func TestFetch_ExistingVerifiedArtifactSkipsDownload(t *testing.T) {
	t.Parallel()
	payload := []byte("already here")
	dest := filepath.Join(t.TempDir(), "driver.run")
	require.NoError(t, os.WriteFile(dest, payload, 0o644))
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
	}))
	defer srv.Close()

	err := NewFetcher().Fetch(context.Background(), srv.URL, sha256hex(payload), dest)

	require.NoError(t, err)
	assert.Equal(t, 0, requests)
}

func TestFetch_NotFoundIsFatal(t *testing.T) {
	t.Parallel()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewFetcher().Fetch(context.Background(), srv.URL, sha256hex([]byte("x")), filepath.Join(t.TempDir(), "a"))

	require.Error(t, err)
	assert.Equal(t, 1, requests)
}
