package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type readRepository struct {
	db *gorm.DB
}

func (r *readRepository) GetMetadata(ctx context.Context) (domain.FeedMetadata, error) {
	var row feedMetadataModel
	if err := r.db.WithContext(ctx).Where("id = ?", feedMetadataID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FeedMetadata{}, nil
		}
		return domain.FeedMetadata{}, err
	}
	return toDomainMetadata(row), nil
}

func (r *readRepository) ListRoutes(ctx context.Context, limit int) ([]domain.Route, error) {
	var rows []routeModel
	if err := r.db.WithContext(ctx).Order("seq asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, toDomainRoute), nil
}

func (r *readRepository) GetRoute(ctx context.Context, routeID string) (domain.Route, error) {
	var row routeModel
	if err := r.db.WithContext(ctx).Where("route_id = ?", routeID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Route{}, domain.ErrNotFound
		}
		return domain.Route{}, err
	}
	return toDomainRoute(row), nil
}

func (r *readRepository) ListStops(ctx context.Context, limit int) ([]domain.Stop, error) {
	var rows []stopModel
	if err := r.db.WithContext(ctx).Order("seq asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, toDomainStop), nil
}

func (r *readRepository) GetStop(ctx context.Context, stopID string) (domain.Stop, error) {
	var row stopModel
	if err := r.db.WithContext(ctx).Where("stop_id = ?", stopID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Stop{}, domain.ErrNotFound
		}
		return domain.Stop{}, err
	}
	return toDomainStop(row), nil
}

func (r *readRepository) ListShapes(ctx context.Context, limit int) ([]domain.Shape, error) {
	var rows []shapeModel
	if err := r.db.WithContext(ctx).Order("shape_id asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, toDomainShape), nil
}

// Counts reads every table size concurrently. A failed count leaves its field
// nil and the first failure is returned alongside the partial result.
func (r *readRepository) Counts(ctx context.Context) (ports.TableCounts, error) {
	var out ports.TableCounts
	targets := []struct {
		model any
		name  string
		dst   **int64
	}{
		{&routeModel{}, "routes", &out.Routes},
		{&shapeModel{}, "shapes", &out.Shapes},
		{&stopModel{}, "stops", &out.Stops},
		{&tripModel{}, "trips", &out.Trips},
		{&stopTimeModel{}, "stop_times", &out.StopTimes},
	}
	var g errgroup.Group
	for _, target := range targets {
		target := target
		g.Go(func() error {
			var n int64
			if err := r.db.WithContext(ctx).Model(target.model).Count(&n).Error; err != nil {
				return fmt.Errorf("count %s: %w", target.name, err)
			}
			*target.dst = &n
			return nil
		})
	}
	err := g.Wait()
	return out, err
}

func (r *readRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
