// Package httptransport is the thin REST layer over the admission service
// and verification client. It delegates to domain services without embedding
// business logic so transport concerns remain isolated.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"imeigate/internal/imei"
	"imeigate/internal/imeicheck"
	"imeigate/internal/membership/metrics"
	"imeigate/internal/membership/models"
	"imeigate/internal/platform/middleware"
	dErrors "imeigate/pkg/domain-errors"
	"imeigate/pkg/requestcontext"
)

// Service defines the admission operations the REST API consumes.
type Service interface {
	IsAuthorized(ctx context.Context, telegramID int64) (bool, error)
	AddToWhitelist(ctx context.Context, telegramID int64, username string) (*models.User, error)
	RemoveFromWhitelist(ctx context.Context, telegramID int64) (*models.User, error)
	PromoteToAdmin(ctx context.Context, telegramID int64, username string) (*models.Admin, error)
	ListWhitelisted(ctx context.Context) ([]*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.Admin, error)
}

// Handler handles the whitelist, admin, and check-imei endpoints.
type Handler struct {
	logger    *slog.Logger
	admission Service
	verifier  imeicheck.Client
	retry     imeicheck.RetryPolicy
	serviceID int
	apiToken  string
	metrics   *metrics.Metrics
}

type Option func(h *Handler)

func WithRetryPolicy(p imeicheck.RetryPolicy) Option {
	return func(h *Handler) {
		h.retry = p
	}
}

func WithServiceID(id int) Option {
	return func(h *Handler) {
		h.serviceID = id
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates the REST handler. apiToken guards the check-imei endpoint only;
// membership endpoints mirror the original surface and stay open.
func New(admission Service, verifier imeicheck.Client, apiToken string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:    logger,
		admission: admission,
		verifier:  verifier,
		retry:     imeicheck.RetryPolicy{Attempts: 1},
		serviceID: 15,
		apiToken:  apiToken,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers all routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))

	r.Get("/whitelist/list", h.handleListWhitelist)
	r.Post("/whitelist/add", h.handleAddToWhitelist)
	r.Post("/whitelist/remove", h.handleRemoveFromWhitelist)
	r.Get("/whitelist/check/{telegramID}", h.handleCheckWhitelist)
	r.Get("/admin/list", h.handleListAdmins)
	r.Post("/admin/make_admin", h.handleMakeAdmin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIToken(h.apiToken, h.logger))
		r.Post("/api/check-imei", h.handleCheckIMEI)
	})
}

func (h *Handler) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	users, err := h.admission.ListWhitelisted(r.Context())
	if err != nil {
		h.logError(r.Context(), "failed to list whitelist", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, whitelistListResponse{Whitelist: toUserEntries(users)})
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admission.ListAdmins(r.Context())
	if err != nil {
		h.logError(r.Context(), "failed to list admins", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminListResponse{Admins: toAdminEntries(admins)})
}

func (h *Handler) handleAddToWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := h.admission.AddToWhitelist(r.Context(), req.TelegramID, req.Username)
	if err != nil {
		h.logError(r.Context(), "failed to add to whitelist", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, whitelistAddResponse{
		Message: "User " + strconv.FormatInt(req.TelegramID, 10) + " added to whitelist",
		User:    toUserEntry(user),
	})
}

func (h *Handler) handleRemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if _, err := h.admission.RemoveFromWhitelist(r.Context(), req.TelegramID); err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logError(r.Context(), "failed to remove from whitelist", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "User " + strconv.FormatInt(req.TelegramID, 10) + " removed from whitelist",
	})
}

func (h *Handler) handleCheckWhitelist(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "telegram id must be an integer"))
		return
	}
	authorized, err := h.admission.IsAuthorized(r.Context(), telegramID)
	if err != nil {
		h.logError(r.Context(), "failed to check whitelist", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, whitelistCheckResponse{
		TelegramID:  telegramID,
		InWhitelist: authorized,
	})
}

func (h *Handler) handleMakeAdmin(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	admin, err := h.admission.PromoteToAdmin(r.Context(), req.TelegramID, req.Username)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logError(r.Context(), "failed to assign admin", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, makeAdminResponse{
		Message: "User " + strconv.FormatInt(req.TelegramID, 10) + " is now an admin",
		Admin:   toAdminEntry(admin),
	})
}

func (h *Handler) handleCheckIMEI(w http.ResponseWriter, r *http.Request) {
	var req imeiCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	normalized, ok := imei.Normalize(req.IMEI)
	if !ok {
		h.metrics.IncrementIMEICheck("invalid")
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid IMEI"))
		return
	}
	serviceID := req.ServiceID
	if serviceID == 0 {
		serviceID = h.serviceID
	}
	record, err := imeicheck.CheckWithRetry(r.Context(), h.verifier, normalized, serviceID, h.retry)
	if err != nil {
		h.metrics.IncrementIMEICheck("error")
		h.logError(r.Context(), "external verification failed", err)
		writeVerificationError(w, err)
		return
	}
	h.metrics.IncrementIMEICheck("success")
	writeJSON(w, http.StatusOK, imeiCheckResponse{Details: record})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

// writeVerificationError maps verification failures onto HTTP statuses:
// upstream rejections and transport failures surface as 502, anything else
// as the generic server error.
func writeVerificationError(w http.ResponseWriter, err error) {
	var transportErr *imeicheck.TransportError
	var rejectedErr *imeicheck.ServiceRejectedError
	var networkErr *imeicheck.NetworkError
	switch {
	case errors.As(err, &transportErr), errors.As(err, &rejectedErr), errors.As(err, &networkErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:       "verification_failed",
			Description: err.Error(),
		})
	default:
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed"))
	}
}
