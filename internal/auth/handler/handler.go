package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"takenotes/internal/auth/models"
	authservice "takenotes/internal/auth/service"
	id "takenotes/pkg/domain"
	dErrors "takenotes/pkg/domain-errors"
	"takenotes/pkg/platform/httputil"
	"takenotes/pkg/requestcontext"
)

// Service defines the auth operations exposed over HTTP.
type Service interface {
	Signup(ctx context.Context, in authservice.SignupInput) (*models.CodeIssued, error)
	VerifyOTP(ctx context.Context, email, code string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	GoogleLogin(ctx context.Context, token string) (*models.AuthResult, error)
	ResendOTP(ctx context.Context, email string) (*models.CodeIssued, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
}

// Handler wires the /api/auth endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the auth endpoints. requireAuth guards /me.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/signup", h.HandleSignup)
	r.Post("/verify-otp", h.HandleVerifyOTP)
	r.Post("/login", h.HandleLogin)
	r.Post("/google", h.HandleGoogle)
	r.Post("/resend-otp", h.HandleResendOTP)
	r.With(requireAuth).Get("/me", h.HandleMe)
}

// HandleSignup handles POST /signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ack, err := h.service.Signup(ctx, authservice.SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		h.fail(ctx, w, "signup", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &AckResponse{
		Message: "OTP sent to your email. Please check your inbox.",
		Email:   ack.Email,
	})
}

// HandleVerifyOTP handles POST /verify-otp.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		h.fail(ctx, w, "verify otp", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", result.User.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, newAuthResponse("User created successfully", result))
}

// HandleLogin handles POST /login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(ctx, w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAuthResponse("Login successful", result))
}

// HandleGoogle handles POST /google. New users get 201, existing users 200.
func (h *Handler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[GoogleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.GoogleLogin(ctx, req.Token)
	if err != nil {
		h.fail(ctx, w, "google login", err)
		return
	}

	if result.Created {
		httputil.WriteJSON(w, http.StatusCreated, newAuthResponse("User created successfully", result))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAuthResponse("Login successful", result))
}

// HandleResendOTP handles POST /resend-otp.
func (h *Handler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ResendOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ack, err := h.service.ResendOTP(ctx, req.Email)
	if err != nil {
		h.fail(ctx, w, "resend otp", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &AckResponse{
		Message: "New OTP sent to your email. Please check your inbox.",
		Email:   ack.Email,
	})
}

// HandleMe handles GET /me for the bearer token's subject.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.service.Me(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "get current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MeResponse{User: newUserSummary(user)})
}

// fail logs err at a level matching its kind and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"op", op,
		"code", string(code),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "auth request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "auth request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
