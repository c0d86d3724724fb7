package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

const (
	cacheKeyRoutes = "routes"
	cacheKeyStops  = "stops"
	cacheKeyShapes = "shapes"
)

func (s *Service) ListRoutes(ctx context.Context) ([]RouteResponse, error) {
	var out []RouteResponse
	if s.readCached(ctx, cacheKeyRoutes, &out) {
		return out, nil
	}
	routes, err := s.reads.ListRoutes(ctx, s.cfg.RouteListLimit)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		if err := s.ensureLoaded(ctx); err != nil {
			return nil, err
		}
	}
	out = make([]RouteResponse, 0, len(routes))
	for _, route := range routes {
		out = append(out, toRouteResponse(route))
	}
	s.writeCached(ctx, cacheKeyRoutes, out)
	return out, nil
}

func (s *Service) GetRoute(ctx context.Context, routeID string) (RouteResponse, error) {
	if routeID == "" {
		return RouteResponse{}, fmt.Errorf("%w: route_id is required", domain.ErrInvalidInput)
	}
	route, err := s.reads.GetRoute(ctx, routeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if loadErr := s.ensureLoaded(ctx); loadErr != nil {
				return RouteResponse{}, loadErr
			}
		}
		return RouteResponse{}, err
	}
	return toRouteResponse(route), nil
}

func (s *Service) ListStops(ctx context.Context) ([]StopResponse, error) {
	var out []StopResponse
	if s.readCached(ctx, cacheKeyStops, &out) {
		return out, nil
	}
	stops, err := s.reads.ListStops(ctx, s.cfg.StopListLimit)
	if err != nil {
		return nil, err
	}
	if len(stops) == 0 {
		if err := s.ensureLoaded(ctx); err != nil {
			return nil, err
		}
	}
	out = make([]StopResponse, 0, len(stops))
	for _, stop := range stops {
		out = append(out, toStopResponse(stop))
	}
	s.writeCached(ctx, cacheKeyStops, out)
	return out, nil
}

func (s *Service) GetStop(ctx context.Context, stopID string) (StopResponse, error) {
	if stopID == "" {
		return StopResponse{}, fmt.Errorf("%w: stop_id is required", domain.ErrInvalidInput)
	}
	stop, err := s.reads.GetStop(ctx, stopID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if loadErr := s.ensureLoaded(ctx); loadErr != nil {
				return StopResponse{}, loadErr
			}
		}
		return StopResponse{}, err
	}
	return toStopResponse(stop), nil
}

func (s *Service) ListShapes(ctx context.Context) (ShapesResponse, error) {
	var out ShapesResponse
	if s.readCached(ctx, cacheKeyShapes, &out) {
		return out, nil
	}
	shapes, err := s.reads.ListShapes(ctx, s.cfg.ShapeListLimit)
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		if err := s.ensureLoaded(ctx); err != nil {
			return nil, err
		}
	}
	if len(shapes) >= s.cfg.ShapeListLimit {
		s.logger.WarnContext(ctx, "shape list truncated",
			"module", "application.feed",
			"layer", "application",
			"operation", "list_shapes",
			"outcome", "truncated",
			"limit", s.cfg.ShapeListLimit,
		)
	}
	out = make(ShapesResponse, len(shapes))
	for _, shape := range shapes {
		out[shape.ShapeID] = shape.Coordinates
	}
	s.writeCached(ctx, cacheKeyShapes, out)
	return out, nil
}

// Status combines stored metadata, table sizes and this replica's refresh state.
func (s *Service) Status(ctx context.Context) (StatusResponse, error) {
	snap := s.refresh.Snapshot()
	out := StatusResponse{
		UpdateInProgress:    snap.Running,
		NextUpdateApproxUTC: snap.NextUpdate,
	}

	meta, err := s.reads.GetMetadata(ctx)
	if err != nil {
		out.Status = domain.StatusError
		out.Message = "Could not read feed metadata from storage."
		return out, nil
	}
	if meta.LastSuccessfulUpdate != nil {
		last := meta.LastSuccessfulUpdate.UTC()
		out.LastSuccessfulUpdateUTC = &last
		if out.NextUpdateApproxUTC == nil {
			next := last.Add(s.cfg.UpdateInterval)
			out.NextUpdateApproxUTC = &next
		}
	}
	out.FeedChecksum = meta.Checksum

	counts, countErr := s.reads.Counts(ctx)
	out.DBRoutesCount = counts.Routes
	out.DBShapesCount = counts.Shapes
	out.DBStopsCount = counts.Stops
	out.DBTripsCount = counts.Trips
	out.DBStopTimesCount = counts.StopTimes
	if countErr != nil {
		s.logger.WarnContext(ctx, "status counts incomplete",
			"module", "application.feed",
			"layer", "application",
			"operation", "status",
			"outcome", "degraded",
			"error", countErr,
		)
	}

	out.Status, out.Message = domain.DeriveStatus(domain.StatusSnapshot{
		Loaded:           meta.Loaded(),
		ImportInProgress: snap.Running,
		LastRefreshError: snap.LastError,
		CountsAvailable:  countErr == nil && counts.Complete(),
	})
	return out, nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	meta, err := s.reads.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("%w: read feed metadata: %v", domain.ErrStorageUnavailable, err)
	}
	if !meta.Loaded() {
		return domain.ErrFeedNotLoaded
	}
	return nil
}

func (s *Service) readCached(ctx context.Context, key string, dst any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logCacheError(ctx, "cache_get", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logCacheError(ctx, "cache_decode", key, err)
		return false
	}
	return true
}

func (s *Service) writeCached(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL); err != nil {
		s.logCacheError(ctx, "cache_set", key, err)
	}
}

func (s *Service) invalidateReadCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKeyRoutes, cacheKeyStops, cacheKeyShapes); err != nil {
		s.logCacheError(ctx, "cache_delete", "*", err)
	}
}

func (s *Service) logCacheError(ctx context.Context, operation, key string, err error) {
	s.logger.WarnContext(ctx, "cache operation failed",
		"module", "application.cache",
		"layer", "application",
		"operation", operation,
		"outcome", "failure",
		"key", key,
		"error", err,
	)
}

func toRouteResponse(r domain.Route) RouteResponse {
	shapeIDs := r.ShapeIDs
	if shapeIDs == nil {
		shapeIDs = []string{}
	}
	return RouteResponse{
		ID: r.RouteID, RouteID: r.RouteID, AgencyID: r.AgencyID,
		RouteShortName: r.ShortName, RouteLongName: r.LongName, RouteDesc: r.Description,
		RouteType: r.RouteType, RouteURL: r.URL, RouteColor: r.Color, RouteTextColor: r.TextColor,
		ShapeIDs: shapeIDs,
	}
}

func toStopResponse(st domain.Stop) StopResponse {
	return StopResponse{
		ID: st.StopID, StopID: st.StopID, StopCode: st.Code, StopName: st.Name, StopDesc: st.Description,
		StopLat: st.Lat, StopLon: st.Lon, ZoneID: st.ZoneID, StopURL: st.URL,
		LocationType: st.LocationType, ParentStation: st.ParentStation, WheelchairBoarding: st.WheelchairBoarding,
	}
}
