package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/emergency-alerts/internal/application"
	"github.com/example/emergency-alerts/internal/sequence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// AlertServiceDeps captures dependencies for constructing an alert service.
type AlertServiceDeps struct {
	Alerts      application.AlertRepository
	Publisher   application.Publisher
	Sequencer   application.VersionSequencer
	IDGenerator func() string
	Now         func() time.Time
	Retention   time.Duration
	Logger      *slog.Logger
}

// NewAlertService builds an alert service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewAlertService(deps AlertServiceDeps) *application.AlertService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	sequencer := deps.Sequencer
	if sequencer == nil {
		sequencer = sequence.New()
	}
	return application.NewAlertServiceWithLogger(
		deps.Alerts,
		deps.Publisher,
		sequencer,
		idGen,
		now,
		deps.Retention,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	tokenGen := deps.TokenGenerator
	if tokenGen == nil {
		tokenGen = NewIDGenerator("token").NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		idGen,
		tokenGen,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}
