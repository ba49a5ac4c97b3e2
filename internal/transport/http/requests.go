package httptransport

type whitelistRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
}

type imeiCheckRequest struct {
	IMEI      string `json:"imei"`
	ServiceID int    `json:"serviceid"`
}
