package httptransport

import (
	"encoding/json"
	"net/http"

	"imeigate/internal/imeicheck"
	"imeigate/internal/membership/models"
	dErrors "imeigate/pkg/domain-errors"
)

type userEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
}

type whitelistListResponse struct {
	Whitelist []userEntry `json:"whitelist"`
}

type adminListResponse struct {
	Admins []userEntry `json:"admins"`
}

type whitelistAddResponse struct {
	Message string    `json:"message"`
	User    userEntry `json:"user"`
}

type makeAdminResponse struct {
	Message string    `json:"message"`
	Admin   userEntry `json:"admin"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type whitelistCheckResponse struct {
	TelegramID  int64 `json:"telegram_id"`
	InWhitelist bool  `json:"in_whitelist"`
}

type imeiCheckResponse struct {
	Details imeicheck.DeviceRecord `json:"details"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func toUserEntry(user *models.User) userEntry {
	return userEntry{TelegramID: user.TelegramID, Username: user.Username}
}

func toUserEntries(users []*models.User) []userEntry {
	entries := make([]userEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, toUserEntry(user))
	}
	return entries
}

func toAdminEntry(admin *models.Admin) userEntry {
	return userEntry{TelegramID: admin.TelegramID, Username: admin.Username}
}

func toAdminEntries(admins []*models.Admin) []userEntry {
	entries := make([]userEntry, 0, len(admins))
	for _, admin := range admins {
		entries = append(entries, toAdminEntry(admin))
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError centralizes domain error translation to HTTP responses so all
// handlers share one JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), errorResponse{
		Error:       string(code),
		Description: dErrors.MessageOf(err),
	})
}
