package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/api/idtoken"

	dErrors "takenotes/pkg/domain-errors"
)

type stubValidator struct {
	payload  *idtoken.Payload
	err      error
	audience string
	block    bool
}

func (s *stubValidator) Validate(ctx context.Context, _ string, audience string) (*idtoken.Payload, error) {
	s.audience = audience
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.payload, s.err
}

func validPayload() *idtoken.Payload {
	return &idtoken.Payload{
		Issuer:   "https://accounts.google.com",
		Audience: "client-123",
		Subject:  "1029384756",
		Expires:  time.Now().Add(time.Hour).Unix(),
		Claims: map[string]interface{}{
			"email":          "grace@example.com",
			"email_verified": true,
			"given_name":     "Grace",
			"family_name":    "Hopper",
			"name":           "Grace Hopper",
		},
	}
}

type GoogleVerifierSuite struct {
	suite.Suite
	ctx context.Context
}

func TestGoogleVerifierSuite(t *testing.T) {
	suite.Run(t, new(GoogleVerifierSuite))
}

func (s *GoogleVerifierSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *GoogleVerifierSuite) newVerifier(v TokenValidator, opts ...Option) *GoogleVerifier {
	verifier, err := NewGoogleVerifier(s.ctx, "client-123", append([]Option{WithValidator(v)}, opts...)...)
	s.Require().NoError(err)
	return verifier
}

func (s *GoogleVerifierSuite) TestVerify() {
	s.Run("valid token yields claims", func() {
		stub := &stubValidator{payload: validPayload()}
		claims, err := s.newVerifier(stub).Verify(s.ctx, "id-token")
		s.Require().NoError(err)
		s.Equal("client-123", stub.audience)
		s.Equal("1029384756", claims.Subject)
		s.Equal("grace@example.com", claims.Email)
		s.Equal("Grace", claims.GivenName)
		s.Equal("Hopper", claims.FamilyName)
	})

	s.Run("bare issuer is accepted", func() {
		p := validPayload()
		p.Issuer = "accounts.google.com"
		_, err := s.newVerifier(&stubValidator{payload: p}).Verify(s.ctx, "id-token")
		s.NoError(err)
	})

	s.Run("string email_verified is accepted", func() {
		p := validPayload()
		p.Claims["email_verified"] = "true"
		_, err := s.newVerifier(&stubValidator{payload: p}).Verify(s.ctx, "id-token")
		s.NoError(err)
	})

	s.Run("foreign issuer is rejected", func() {
		p := validPayload()
		p.Issuer = "https://evil.example.com"
		_, err := s.newVerifier(&stubValidator{payload: p}).Verify(s.ctx, "id-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("unverified email is rejected", func() {
		p := validPayload()
		p.Claims["email_verified"] = false
		_, err := s.newVerifier(&stubValidator{payload: p}).Verify(s.ctx, "id-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("missing email is rejected", func() {
		p := validPayload()
		delete(p.Claims, "email")
		_, err := s.newVerifier(&stubValidator{payload: p}).Verify(s.ctx, "id-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("validator failure keeps cause", func() {
		cause := errors.New("idtoken: token expired")
		_, err := s.newVerifier(&stubValidator{err: cause}).Verify(s.ctx, "id-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
		s.ErrorIs(err, cause)
	})

	s.Run("slow validator times out", func() {
		start := time.Now()
		_, err := s.newVerifier(&stubValidator{block: true}, WithTimeout(20*time.Millisecond)).Verify(s.ctx, "id-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
		s.ErrorIs(err, context.DeadlineExceeded)
		s.Less(time.Since(start), time.Second)
	})
}

func TestVerifyWithoutClientID(t *testing.T) {
	v, err := NewGoogleVerifier(context.Background(), "", WithValidator(&stubValidator{payload: validPayload()}))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "id-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidToken))
}
