package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"takenotes/internal/auth/device"
	"takenotes/internal/auth/metrics"
	"takenotes/internal/auth/models"
	"takenotes/internal/notify"
	id "takenotes/pkg/domain"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/requestcontext"
)

// DefaultNotifyTimeout bounds one delivery attempt.
const DefaultNotifyTimeout = 10 * time.Second

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ActivateUnverified(ctx context.Context, user *models.User) error
}

type PendingStore interface {
	Put(ctx context.Context, email, code string, draft models.RegistrationDraft) (*models.PendingRegistration, error)
	Get(ctx context.Context, email string) (*models.PendingRegistration, error)
	ConsumeIfMatch(ctx context.Context, email, code string) (*models.PendingRegistration, error)
	Restore(ctx context.Context, entry *models.PendingRegistration) error
}

// IssuanceCooldown enforces a minimum interval between codes for one email.
type IssuanceCooldown interface {
	Acquire(ctx context.Context, email string, interval time.Duration) (time.Duration, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) bool
	VerifyDummy(ctx context.Context, plaintext string)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID) (string, time.Time, error)
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*models.FederatedClaims, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the registration, login and federated sign-in flows. It owns
// no state of its own: pending codes live in the PendingStore and users in
// the UserStore.
type Service struct {
	users    UserStore
	pending  PendingStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier Notifier

	verifier       IdentityVerifier
	cooldown       IssuanceCooldown
	resendInterval time.Duration
	notifyTimeout  time.Duration

	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	device         *device.Service
	logger         *slog.Logger
	tracer         trace.Tracer
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithIdentityVerifier(verifier IdentityVerifier) Option {
	return func(s *Service) {
		s.verifier = verifier
	}
}

// WithIssuanceCooldown enables the minimum interval between code issuances
// for one email. An interval of zero leaves issuance unthrottled.
func WithIssuanceCooldown(cooldown IssuanceCooldown, interval time.Duration) Option {
	return func(s *Service) {
		s.cooldown = cooldown
		s.resendInterval = interval
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func WithDeviceService(d *device.Service) Option {
	return func(s *Service) {
		s.device = d
	}
}

// WithClock overrides the request-scoped time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(users UserStore, pending PendingStore, hasher PasswordHasher, tokens TokenIssuer, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		users:         users,
		pending:       pending,
		hasher:        hasher,
		tokens:        tokens,
		notifier:      notifier,
		notifyTimeout: DefaultNotifyTimeout,
		logger:        slog.Default(),
		tracer:        otel.Tracer("takenotes/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

// startSpan opens a span for one operation. end records err on the span.
func (s *Service) startSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// issueCredential mints a bearer token for user.
func (s *Service) issueCredential(user *models.User, created bool) (*models.AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Created:     created,
	}, nil
}
