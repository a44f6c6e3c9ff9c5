// Package fetch obtains a source artifact, from the local cache when a copy
// is present and from its URL otherwise.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/config"
	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/types"
)

const partSuffix = ".part"

// Fetcher downloads artifacts into a work directory.
type Fetcher struct {
	fs     types.FS
	client *http.Client
	logger zerolog.Logger

	attempts       int
	connectTimeout time.Duration
	timeout        time.Duration
	userAgent      string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFS sets the filesystem the fetcher reads the cache from and writes to.
func WithFS(fsys types.FS) Option {
	return func(f *Fetcher) { f.fs = fsys }
}

// WithHTTPClient makes every attempt use client instead of a fresh one.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// New creates a Fetcher from the fetch settings.
func New(cfg config.Fetch, opts ...Option) *Fetcher {
	f := &Fetcher{
		fs:             filesystem.NewOS(),
		logger:         logging.GetLogger("fetch"),
		attempts:       cfg.Attempts,
		connectTimeout: cfg.ConnectTimeout,
		timeout:        cfg.Timeout,
		userAgent:      cfg.UserAgent,
	}
	if f.attempts < 1 {
		f.attempts = 1
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch places the artifact described by desc at workDir/desc.Filename and
// returns that path. A file of the same name in cacheDir wins over the
// network and is copied without verification; the caller verifies either
// way.
func (f *Fetcher) Fetch(ctx context.Context, desc *types.SourceDescriptor, cacheDir, workDir string) (string, bool, error) {
	if desc.Filename == "" {
		return "", false, errors.New(errors.ErrInvalidInput, "descriptor has no filename")
	}
	if err := f.fs.MkdirAll(workDir, 0755); err != nil {
		return "", false, errors.Wrapf(err, errors.ErrDirCreate, "failed to create work directory %s", workDir)
	}
	dest := filepath.Join(workDir, desc.Filename)

	if cacheDir != "" {
		cached := filepath.Join(cacheDir, desc.Filename)
		if info, err := f.fs.Stat(cached); err == nil && info.Mode().IsRegular() {
			f.logger.Info().Str("cached", cached).Msg("Using cached artifact")
			if err := filesystem.CopyFile(f.fs, cached, dest); err != nil {
				return "", false, errors.Wrapf(err, errors.ErrFetch, "failed to copy cached artifact %s", cached)
			}
			return dest, true, nil
		}
	}

	if desc.URL == "" {
		return "", false, missingField("url", desc)
	}
	if desc.Checksum == "" {
		return "", false, missingField("checksum", desc)
	}

	u, err := url.Parse(desc.URL)
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrFetch, "invalid source url %q", desc.URL)
	}

	switch u.Scheme {
	case "http", "https":
		if err := f.download(ctx, u.String(), dest); err != nil {
			return "", false, err
		}
	case "file":
		if err := filesystem.CopyFile(f.fs, u.Path, dest); err != nil {
			return "", false, errors.Wrapf(err, errors.ErrFetch, "failed to read %s", desc.URL).
				WithDetail("url", desc.URL)
		}
	default:
		return "", false, errors.Newf(errors.ErrFetch, "unsupported url scheme %q", u.Scheme).
			WithDetail("url", desc.URL)
	}

	return dest, false, nil
}

func missingField(field string, desc *types.SourceDescriptor) error {
	return errors.Newf(errors.ErrFetch,
		"source %s has no %s and %s is not in the cache", desc.SourceID, field, desc.Filename).
		WithDetail("field", field).
		WithDetail("source_id", desc.SourceID)
}

// download runs a fixed number of attempts. Nothing is reused between
// attempts: each gets its own client, so a stale connection or resolver
// answer from a failed try cannot affect the next one.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	part := dest + partSuffix
	defer func() {
		_ = f.fs.Remove(part)
	}()

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		f.logger.Info().
			Str("url", rawURL).
			Int("attempt", attempt).
			Int("attempts", f.attempts).
			Msg("Downloading")

		lastErr = f.attempt(ctx, f.clientForAttempt(), rawURL, part)
		if lastErr == nil {
			if err := f.fs.Rename(part, dest); err != nil {
				return errors.Wrapf(err, errors.ErrFileCreate, "failed to move download into %s", dest)
			}
			return nil
		}

		f.logger.Warn().
			Err(lastErr).
			Str("url", rawURL).
			Int("attempt", attempt).
			Msg("Download attempt failed")
	}

	return errors.Wrapf(lastErr, errors.ErrFetch, "failed to download %s", rawURL).
		WithDetail("url", rawURL).
		WithDetail("attempts", f.attempts)
}

func (f *Fetcher) clientForAttempt() *http.Client {
	if f.client != nil {
		return f.client
	}
	dialer := &net.Dialer{Timeout: f.connectTimeout}
	return &http.Client{
		Timeout: f.timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: f.connectTimeout,
			DisableKeepAlives:   true,
		},
	}
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, rawURL, part string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	out, err := f.fs.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	f.logger.Debug().Str("url", rawURL).Int64("bytes", written).Msg("Download complete")
	return nil
}
