package registry

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PageSize is the fixed number of rows per listing page.
const PageSize = 50

// Service runs registry queries and writes against the record store.
type Service struct {
	db     *gorm.DB
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

// WithClock overrides the time source used for modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. loc is the civil timezone timestamps are
// recorded and filtered in.
func NewService(db *gorm.DB, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{db: db, loc: loc, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the civil timezone of the service.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) timestamp() time.Time {
	return s.now().In(s.loc)
}
