package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"takenotes/internal/auth/password"
	authservice "takenotes/internal/auth/service"
	"takenotes/internal/auth/store/pending"
	userStore "takenotes/internal/auth/store/user"
	jwttoken "takenotes/internal/jwt_token"
	"takenotes/internal/notify"
	"takenotes/internal/platform/metrics"
	httptransport "takenotes/internal/transport/http"
	authmw "takenotes/pkg/platform/middleware/auth"
	"takenotes/pkg/testutil"
)

// outbox records every message instead of delivering it.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last() notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return notify.Message{}
	}
	return o.sent[len(o.sent)-1]
}

// FlowSuite drives the full router with the real service over in-memory
// stores.
type FlowSuite struct {
	suite.Suite
	pending *pending.InMemoryStore
	outbox  *outbox
	router  http.Handler
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

func (s *FlowSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	registry := prometheus.NewRegistry()
	tokens := jwttoken.NewJWTService("flow-test-key", "takenotes-test")

	s.pending = pending.New()
	s.outbox = &outbox{}
	service := authservice.New(
		userStore.New(),
		s.pending,
		password.New(password.WithCost(bcrypt.MinCost)),
		tokens,
		s.outbox,
		authservice.WithLogger(logger),
	)

	s.router = httptransport.NewRouter(httptransport.Config{
		Logger:         logger,
		Metrics:        metrics.NewWithRegisterer(registry),
		Auth:           New(service, logger),
		RequireAuth:    authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
}

func (s *FlowSuite) TestSignupVerifyThenMe() {
	t := s.T()

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"firstName": "Ann", "lastName": "Lee", "email": "Ann@X.com", "password": "secret1",
	}))
	testutil.AssertStatusOK(t, rr)
	ack := testutil.UnmarshalResponse[AckResponse](t, rr)
	s.Equal("ann@x.com", ack.Email)

	entry, err := s.pending.Get(context.Background(), "ann@x.com")
	s.Require().NoError(err)
	msg := s.outbox.last()
	s.Equal("ann@x.com", msg.To)
	s.Contains(msg.TextBody, entry.Code)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{
		"email": "ann@x.com", "otp": entry.Code,
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	auth := testutil.UnmarshalResponse[AuthResponse](t, rr)
	s.Require().NotEmpty(auth.AccessToken)
	s.Equal("User created successfully", auth.Message)

	rr = testutil.DoRequest(s.router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/api/auth/me"), auth.AccessToken))
	testutil.AssertStatusOK(t, rr)
	me := testutil.UnmarshalResponse[MeResponse](t, rr)
	s.Equal(auth.User.ID, me.User.ID)
	s.Equal("Ann", me.User.FirstName)
	s.Equal("Lee", me.User.LastName)
	s.Equal("ann@x.com", me.User.Email)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{
		"email": "ann@x.com", "otp": entry.Code,
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_otp")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	s.Contains(string(testutil.ReadBody(t, rr)), "takenotes_http_request_duration_seconds")
}

func (s *FlowSuite) TestMeWithoutTokenThroughRouter() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}
