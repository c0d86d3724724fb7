package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

type Service struct {
	cfg      Config
	logger   *slog.Logger
	source   ports.FeedSource
	parser   ports.FeedParser
	archive  ports.ArchiveStore
	feed     ports.FeedWriter
	reads    ports.FeedReader
	schedule ports.ScheduleRepository
	cache    ports.Cache
	lock     ports.ImportLock
	refresh  *RefreshState
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Logger   *slog.Logger
	Source   ports.FeedSource
	Parser   ports.FeedParser
	Archive  ports.ArchiveStore
	Feed     ports.FeedWriter
	Reads    ports.FeedReader
	Schedule ports.ScheduleRepository
	Cache    ports.Cache
	Lock     ports.ImportLock
	Clock    func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "freecity-gtfs-api"
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 7 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.ImportLockTTL <= 0 {
		cfg.ImportLockTTL = 30 * time.Minute
	}
	if cfg.RouteListLimit <= 0 {
		cfg.RouteListLimit = 2000
	}
	if cfg.StopListLimit <= 0 {
		cfg.StopListLimit = 20000
	}
	if cfg.ShapeListLimit <= 0 {
		cfg.ShapeListLimit = 10000
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = time.Now
	}

	return &Service{
		cfg:      cfg,
		logger:   logger,
		source:   deps.Source,
		parser:   deps.Parser,
		archive:  deps.Archive,
		feed:     deps.Feed,
		reads:    deps.Reads,
		schedule: deps.Schedule,
		cache:    deps.Cache,
		lock:     deps.Lock,
		refresh:  &RefreshState{},
		nowFn:    nowFn,
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// Refresh exposes the in-process refresh state to the scheduler.
func (s *Service) Refresh() *RefreshState {
	return s.refresh
}

// Ready reports whether storage is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.reads.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
