// AngelaMos | 2026
// service.go

package search

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

const tracerName = "bloodlink/search"

type Service struct {
	store   store.Store
	metrics *metrics.Metrics
}

func NewService(st store.Store, m *metrics.Metrics) *Service {
	return &Service{store: st, metrics: m}
}

type Result struct {
	Matches []Match
	Summary Summary
	Origin  *geo.Point
}

// Search runs q on behalf of hospitalID, measuring distance from the
// hospital's stored location when it has one.
func (s *Service) Search(
	ctx context.Context,
	hospitalID string,
	q Query,
) (*Result, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "search.donors",
		attribute.String("hospital.id", hospitalID),
		attribute.Bool("query.available_only", q.AvailableOnly),
	)
	defer span.End()

	u, err := s.store.FindUserByID(ctx, hospitalID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("load hospital: %w", err)
	}
	hospital, ok := model.AsHospital(u)
	if !ok {
		return nil, fmt.Errorf("load hospital: %w", core.ErrNotFound)
	}

	donors, err := s.store.ListDonors(ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("list donors: %w", err)
	}

	matches := Search(donors, hospital.Location, q)
	summary := Summarize(matches)

	span.SetAttributes(
		attribute.Int("search.candidates", len(donors)),
		attribute.Int("search.matches", summary.Total),
	)
	s.metrics.ObserveSearch(summary.Total)

	return &Result{
		Matches: matches,
		Summary: summary,
		Origin:  hospital.Location,
	}, nil
}
