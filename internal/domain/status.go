package domain

import "fmt"

const (
	StatusOK      = "OK"
	StatusLoading = "Loading"
	StatusWarning = "Warning"
	StatusError   = "Error"
)

type StatusSnapshot struct {
	Loaded           bool
	ImportInProgress bool
	LastRefreshError string
	CountsAvailable  bool
}

// DeriveStatus folds refresh state and storage health into a service status.
func DeriveStatus(s StatusSnapshot) (string, string) {
	switch {
	case !s.Loaded && s.ImportInProgress:
		return StatusLoading, "Initial GTFS import in progress."
	case !s.Loaded && s.LastRefreshError != "":
		return StatusError, fmt.Sprintf("Initial GTFS import failed: %s", s.LastRefreshError)
	case !s.Loaded:
		return StatusError, "GTFS data is not loaded yet."
	case s.LastRefreshError != "":
		return StatusWarning, fmt.Sprintf("Data may be stale. Last refresh failed: %s", s.LastRefreshError)
	case !s.CountsAvailable:
		return StatusWarning, "Could not read full database status."
	case s.ImportInProgress:
		return StatusOK, "GTFS data loaded. Refresh in progress."
	default:
		return StatusOK, "GTFS data loaded."
	}
}
