package ports

import (
	"context"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

type FeedArchive struct {
	Data        []byte
	Checksum    string
	ContentType string
}

type FeedSource interface {
	Fetch(ctx context.Context, url string) (FeedArchive, error)
}

type FeedParser interface {
	Parse(data []byte) (domain.Feed, error)
}

// ArchiveStore keeps raw feed snapshots. Store returns the object key.
type ArchiveStore interface {
	Store(ctx context.Context, archive FeedArchive) (string, error)
}
