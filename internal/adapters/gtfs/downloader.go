package gtfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

const maxArchiveBytes = 512 << 20

type Downloader struct {
	client *http.Client
	logger *slog.Logger
}

func NewDownloader(logger *slog.Logger, timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (d *Downloader) Fetch(ctx context.Context, url string) (ports.FeedArchive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.FeedArchive{}, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return ports.FeedArchive{}, fmt.Errorf("%w: download feed: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.FeedArchive{}, fmt.Errorf("%w: download feed: unexpected status %d", domain.ErrDependencyUnavailable, resp.StatusCode)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "zip") && !strings.Contains(contentType, "octet-stream") {
		d.logger.WarnContext(ctx, "unexpected feed content type",
			"module", "gtfs.downloader",
			"layer", "adapter",
			"operation", "fetch",
			"content_type", contentType,
		)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return ports.FeedArchive{}, fmt.Errorf("%w: read feed body: %v", domain.ErrDependencyUnavailable, err)
	}
	if len(data) == 0 {
		return ports.FeedArchive{}, fmt.Errorf("%w: downloaded archive is empty", domain.ErrFeedInvalid)
	}
	if len(data) > maxArchiveBytes {
		return ports.FeedArchive{}, fmt.Errorf("%w: archive exceeds %d bytes", domain.ErrFeedInvalid, maxArchiveBytes)
	}
	sum := sha256.Sum256(data)

	d.logger.InfoContext(ctx, "feed archive downloaded",
		"module", "gtfs.downloader",
		"layer", "adapter",
		"operation", "fetch",
		"outcome", "success",
		"size_mb", fmt.Sprintf("%.2f", float64(len(data))/1024/1024),
	)
	return ports.FeedArchive{
		Data:        data,
		Checksum:    hex.EncodeToString(sum[:]),
		ContentType: contentType,
	}, nil
}
