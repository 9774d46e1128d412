package platforms

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/desertthunder/plylist/internal/shared"
)

// Metrics counts sync and search outcomes per platform. A nil *Metrics records nothing.
type Metrics struct {
	SyncsTotal      *prometheus.CounterVec
	SearchesTotal   *prometheus.CounterVec
	UnresolvedTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plylist_syncs_total",
				Help: "Playlist syncs by platform, direction and outcome",
			},
			[]string{"platform", "direction", "outcome"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plylist_catalog_searches_total",
				Help: "Catalog track searches by platform and outcome",
			},
			[]string{"platform", "outcome"},
		),
		UnresolvedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plylist_unresolved_tracks_total",
				Help: "Tracks left out of a remote playlist because no catalog match was found",
			},
			[]string{"platform"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.SyncsTotal, m.SearchesTotal, m.UnresolvedTotal)
	}
	return m
}

func (m *Metrics) observeSync(platform, direction string, err error) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(platform, direction, outcome(err)).Inc()
}

func (m *Metrics) observeSearch(platform, result string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) observeUnresolved(platform string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.UnresolvedTotal.WithLabelValues(platform).Add(float64(n))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrAuthFailed):
		return "auth_error"
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrTrackNotFound):
		return "not_found"
	default:
		return "error"
	}
}

const (
	searchHit    = "hit"
	searchMiss   = "miss"
	searchCached = "cached"
	searchError  = "error"
)
