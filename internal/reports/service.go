// Package reports implements the hazard report use cases on behalf of an
// authenticated caller.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
)

const (
	// DefaultNearbyRadiusKm applies when ListNearby is called with a zero radius.
	DefaultNearbyRadiusKm = 5.0
	// MaxNearbyRadiusKm bounds ListNearby.
	MaxNearbyRadiusKm = 100.0

	publishTimeout = 5 * time.Second
)

// Store persists reports. Implementations assign unique, monotonic ids on Add
// and apply Update as a single atomic replace.
type Store interface {
	Add(ctx context.Context, r *domain.Report) error
	GetByID(ctx context.Context, id int64) (domain.Report, error)
	// GetOwned returns the report only when both id and owner match, otherwise ErrNotFound.
	GetOwned(ctx context.Context, id int64, ownerID string) (domain.Report, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Report, error)
	ListAll(ctx context.Context) ([]domain.Report, error)
	// Update replaces the report matching r.ID and r.OwnerID, or returns ErrNotFound.
	Update(ctx context.Context, r domain.Report) error
	Delete(ctx context.Context, id int64, ownerID string) error
}

// EventPublisher emits report lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.ReportEvent) error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.ReportEvent) error { return nil }

// Service implements the report use cases on behalf of an authenticated caller.
type Service struct {
	store     Store
	resolver  domain.AddressResolver
	publisher EventPublisher
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService wires a Service. A nil resolver disables geocoding: blank addresses
// stay blank. A nil publisher is replaced by NopPublisher.
func NewService(store Store, resolver domain.AddressResolver, publisher EventPublisher, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create stores a new report owned by callerID. The address is resolved from the
// coordinates when the caller left it blank; otherwise it is kept verbatim.
func (s *Service) Create(ctx context.Context, callerID string, in domain.ReportInput) (domain.Report, error) {
	if callerID == "" {
		return domain.Report{}, domain.ErrUnauthenticated
	}
	in = domain.NormalizeReportInput(in)
	if err := domain.ValidateReportInput(in); err != nil {
		return domain.Report{}, err
	}

	r := domain.Report{
		Type:        in.Type,
		Description: in.Description,
		Latitude:    in.Lat(),
		Longitude:   in.Lon(),
		Address:     in.Address,
		Date:        s.dateOrNow(in),
		OwnerID:     callerID,
	}
	if domain.NeedsGeocoding(nil, in) {
		addr, err := s.resolve(ctx, r.Latitude, r.Longitude)
		if err != nil {
			return domain.Report{}, err
		}
		r.Address = addr
	}

	if err := s.store.Add(ctx, &r); err != nil {
		return domain.Report{}, fmt.Errorf("add report: %w", err)
	}
	s.metrics.ReportMutations.WithLabelValues("create").Inc()
	s.logger.Info("report created", "id", r.ID, "owner_id", r.OwnerID, "type", r.Type)
	s.publish(ctx, domain.EventReportCreated, r)
	return r, nil
}

// Update overwrites a report owned by callerID. A report that does not exist and
// one owned by someone else both yield ErrNotFound.
func (s *Service) Update(ctx context.Context, callerID string, id int64, in domain.ReportInput) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	in = domain.NormalizeReportInput(in)
	if err := domain.ValidateReportInput(in); err != nil {
		return err
	}

	stored, err := s.store.GetOwned(ctx, id, callerID)
	if err != nil {
		return err
	}

	// Compare against the stored coordinates before overwriting them.
	geocode := domain.NeedsGeocoding(&stored, in)

	updated := stored
	updated.Type = in.Type
	updated.Description = in.Description
	updated.Latitude = in.Lat()
	updated.Longitude = in.Lon()
	updated.Date = s.dateOrNow(in)
	updated.Address = in.Address
	if geocode {
		addr, err := s.resolve(ctx, updated.Latitude, updated.Longitude)
		if err != nil {
			return err
		}
		updated.Address = addr
	}

	if err := s.store.Update(ctx, updated); err != nil {
		return fmt.Errorf("update report %d: %w", id, err)
	}
	s.metrics.ReportMutations.WithLabelValues("update").Inc()
	s.logger.Info("report updated", "id", id, "owner_id", callerID, "regeocoded", geocode)
	s.publish(ctx, domain.EventReportUpdated, updated)
	return nil
}

// Delete removes a report owned by callerID, with the same ErrNotFound semantics as Update.
func (s *Service) Delete(ctx context.Context, callerID string, id int64) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	stored, err := s.store.GetOwned(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id, callerID); err != nil {
		return fmt.Errorf("delete report %d: %w", id, err)
	}
	s.metrics.ReportMutations.WithLabelValues("delete").Inc()
	s.logger.Info("report deleted", "id", id, "owner_id", callerID)
	s.publish(ctx, domain.EventReportDeleted, stored)
	return nil
}

// Get returns any report by id. Reads are not owner-scoped.
func (s *Service) Get(ctx context.Context, id int64) (domain.Report, error) {
	return s.store.GetByID(ctx, id)
}

// ListAll returns every report regardless of owner: the shared public-safety feed.
func (s *Service) ListAll(ctx context.Context) ([]domain.Report, error) {
	return s.store.ListAll(ctx)
}

// ListMine returns the reports owned by callerID.
func (s *Service) ListMine(ctx context.Context, callerID string) ([]domain.Report, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.ListByOwner(ctx, callerID)
}

// NearbyReport is a report annotated with its distance from the query point.
type NearbyReport struct {
	domain.Report
	DistanceKm float64 `json:"distanceKm"`
}

// ListNearby returns reports within radiusKm of the point, nearest first.
// A zero radius selects DefaultNearbyRadiusKm.
func (s *Service) ListNearby(ctx context.Context, lat, lon, radiusKm float64) ([]NearbyReport, error) {
	if radiusKm == 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if err := validateNearby(lat, lon, radiusKm); err != nil {
		return nil, err
	}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyReport, 0)
	for _, r := range all {
		d := domain.DistanceKm(lat, lon, r.Latitude, r.Longitude)
		if d <= radiusKm {
			out = append(out, NearbyReport{Report: r, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func validateNearby(lat, lon, radiusKm float64) error {
	verr := &domain.ValidationError{}
	if !(lat >= -90 && lat <= 90) {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}
	if !(lon >= -180 && lon <= 180) {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "lon", Message: "must be between -180 and 180"})
	}
	if !(radiusKm > 0 && radiusKm <= MaxNearbyRadiusKm) {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "radius_km", Message: fmt.Sprintf("must be greater than 0 and at most %g", MaxNearbyRadiusKm)})
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, lat, lon float64) (string, error) {
	if s.resolver == nil {
		return "", nil
	}
	return s.resolver.Resolve(ctx, lat, lon)
}

func (s *Service) dateOrNow(in domain.ReportInput) time.Time {
	if in.Date == nil || in.Date.IsZero() {
		return s.clock.Now().UTC()
	}
	return in.Date.UTC()
}

// publish emits an event after a committed mutation. Failures are logged and
// counted; the mutation has already succeeded.
func (s *Service) publish(ctx context.Context, typ domain.EventType, r domain.Report) {
	evt := domain.ReportEvent{Type: typ, Report: r, OccurredAt: s.clock.Now().UTC()}
	// The mutation is committed; a client that hangs up now must not drop the event.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, evt); err != nil {
		s.metrics.EventsPublished.WithLabelValues(string(typ), "error").Inc()
		s.logger.Warn("publish report event failed", "type", typ, "id", r.ID, "error", err)
		return
	}
	s.metrics.EventsPublished.WithLabelValues(string(typ), "success").Inc()
}
