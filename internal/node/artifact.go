package node

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/nodeprep/internal/util/retry"
)

// ErrChecksumMismatch marks a downloaded artifact whose digest does not
// match its pinned value. Always fatal, in any mode.
var ErrChecksumMismatch = errors.New("artifact checksum mismatch")

// HTTPFetcher downloads artifacts over HTTP(S) with SHA-256 verification.
type HTTPFetcher struct {
	Client *http.Client
}

// NewFetcher returns an HTTPFetcher with the default client.
func NewFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: http.DefaultClient}
}

// Fetch implements Fetcher. Transient download failures are retried with
// backoff; a checksum mismatch is wrapped as fatal so it never retries and
// the tainted file never survives.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, sha256hex, destPath string) error {
	if sha256hex == "" {
		return retry.Fatal(fmt.Errorf("no pinned checksum for %s", url))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	// An earlier run may have left a verified artifact in place.
	if ok, err := verify(destPath, sha256hex); err == nil && ok {
		return nil
	}

	return retry.WithExponentialBackoff(ctx, func() error {
		return f.download(ctx, url, sha256hex, destPath)
	}, retry.WithMaxRetries(3))
}

func (f *HTTPFetcher) download(ctx context.Context, url, sha256hex, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Fatal(err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("download %s: status %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Fatal(err)
		}
		return err
	}

	tmp := destPath + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return retry.Fatal(err)
	}
	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(out, hasher), resp.Body)
	cerr := out.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if cerr != nil {
		_ = os.Remove(tmp)
		return cerr
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(got, sha256hex) {
		_ = os.Remove(tmp)
		return retry.Fatal(fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, url, got, sha256hex))
	}
	return os.Rename(tmp, destPath)
}

// verify hashes an existing file against the pinned digest.
func verify(path, sha256hex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return false, err
	}
	return strings.EqualFold(hex.EncodeToString(hasher.Sum(nil)), sha256hex), nil
}
