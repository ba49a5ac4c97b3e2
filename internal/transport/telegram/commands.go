package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"imeigate/internal/imei"
	"imeigate/internal/imeicheck"
	dErrors "imeigate/pkg/domain-errors"
)

// reply is what a handler wants sent back; html enables Telegram HTML parse
// mode for the device report.
type reply struct {
	text string
	html bool
}

const (
	msgAccessDenied   = "Access denied. You are not in the whitelist."
	msgNotAdmin       = "You are not an admin!"
	msgWelcome        = "Welcome! Send an IMEI to check."
	msgInvalidIMEI    = "Invalid IMEI."
	msgNoDeviceInfo   = "No information found for this IMEI."
	msgTransientError = "Something went wrong. Please try again later."
)

func commandArgs(msg *tgbotapi.Message) []string {
	return strings.Fields(msg.CommandArguments())
}

// respondToCommand routes a slash command. Reply text is built here and sent
// by the caller, which keeps command handling testable without a live bot.
func (b *Bot) respondToCommand(ctx context.Context, callerID int64, command string, args []string) reply {
	switch command {
	case "start":
		return b.handleStart(ctx, callerID)
	case "add_to_whitelist":
		return b.handleAddToWhitelist(ctx, callerID, args)
	case "remove_from_whitelist":
		return b.handleRemoveFromWhitelist(ctx, callerID, args)
	case "make_admin":
		return b.handleMakeAdmin(ctx, callerID, args)
	case "list_admins":
		return b.handleListAdmins(ctx, callerID)
	case "list_whitelist":
		return b.handleListWhitelist(ctx, callerID)
	default:
		return reply{}
	}
}

func (b *Bot) handleStart(ctx context.Context, callerID int64) reply {
	authorized, err := b.admission.IsAuthorized(ctx, callerID)
	if err != nil {
		b.logger.ErrorContext(ctx, "authorization check failed", "error", err)
		return reply{text: msgTransientError}
	}
	if !authorized {
		return reply{text: msgAccessDenied}
	}
	return reply{text: msgWelcome}
}

func (b *Bot) handleAddToWhitelist(ctx context.Context, callerID int64, args []string) reply {
	targetID, username, ok := parseTarget(args)
	if !ok {
		return reply{text: "Usage: /add_to_whitelist <telegram_id> [username]"}
	}
	if _, err := b.admission.AddToWhitelistAs(ctx, callerID, targetID, username); err != nil {
		return b.adminOpError(ctx, err)
	}
	return reply{text: fmt.Sprintf("User %d added to the whitelist.", targetID)}
}

func (b *Bot) handleRemoveFromWhitelist(ctx context.Context, callerID int64, args []string) reply {
	targetID, _, ok := parseTarget(args)
	if !ok {
		return reply{text: "Usage: /remove_from_whitelist <telegram_id>"}
	}
	if _, err := b.admission.RemoveFromWhitelistAs(ctx, callerID, targetID); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return reply{text: fmt.Sprintf("User %d is not in the whitelist.", targetID)}
		}
		return b.adminOpError(ctx, err)
	}
	return reply{text: fmt.Sprintf("User %d removed from the whitelist.", targetID)}
}

func (b *Bot) handleMakeAdmin(ctx context.Context, callerID int64, args []string) reply {
	targetID, username, ok := parseTarget(args)
	if !ok {
		return reply{text: "Usage: /make_admin <telegram_id> [username]"}
	}
	if _, err := b.admission.PromoteToAdminAs(ctx, callerID, targetID, username); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return reply{text: fmt.Sprintf("User %d is unknown; whitelist them first.", targetID)}
		}
		return b.adminOpError(ctx, err)
	}
	return reply{text: fmt.Sprintf("User %d is now an admin.", targetID)}
}

func (b *Bot) handleListAdmins(ctx context.Context, callerID int64) reply {
	admins, err := b.admission.ListAdminsAs(ctx, callerID)
	if err != nil {
		return b.adminOpError(ctx, err)
	}
	if len(admins) == 0 {
		return reply{text: "The admin list is empty."}
	}
	lines := make([]string, 0, len(admins))
	for _, admin := range admins {
		lines = append(lines, formatAccount(admin.TelegramID, admin.Username))
	}
	return reply{text: "Admins:\n" + strings.Join(lines, "\n")}
}

func (b *Bot) handleListWhitelist(ctx context.Context, callerID int64) reply {
	users, err := b.admission.ListWhitelistedAs(ctx, callerID)
	if err != nil {
		return b.adminOpError(ctx, err)
	}
	if len(users) == 0 {
		return reply{text: "The whitelist is empty."}
	}
	lines := make([]string, 0, len(users))
	for _, user := range users {
		lines = append(lines, formatAccount(user.TelegramID, user.Username))
	}
	return reply{text: "Whitelist:\n" + strings.Join(lines, "\n")}
}

// respondToMessage treats free text as an IMEI submission: whitelist gate,
// local validation, then verification with the configured retry policy.
func (b *Bot) respondToMessage(ctx context.Context, callerID int64, text string) reply {
	authorized, err := b.admission.IsAuthorized(ctx, callerID)
	if err != nil {
		b.logger.ErrorContext(ctx, "authorization check failed", "error", err)
		return reply{text: msgTransientError}
	}
	if !authorized {
		return reply{text: msgAccessDenied}
	}

	normalized, ok := imei.Normalize(text)
	if !ok {
		return reply{text: msgInvalidIMEI}
	}

	record, err := imeicheck.CheckWithRetry(ctx, b.verifier, normalized, b.serviceID, b.retry)
	if err != nil {
		return reply{text: fmt.Sprintf("Error: %v. The request could not be completed.", err)}
	}
	if len(record) == 0 {
		return reply{text: msgNoDeviceInfo}
	}
	return reply{text: renderDeviceRecord(record), html: true}
}

func (b *Bot) adminOpError(ctx context.Context, err error) reply {
	if dErrors.Is(err, dErrors.CodeForbidden) {
		return reply{text: msgNotAdmin}
	}
	b.logger.ErrorContext(ctx, "admin operation failed", "error", err)
	return reply{text: msgTransientError}
}

func parseTarget(args []string) (int64, string, bool) {
	if len(args) < 1 {
		return 0, "", false
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID <= 0 {
		return 0, "", false
	}
	username := ""
	if len(args) > 1 {
		username = args[1]
	}
	return targetID, username, true
}

func formatAccount(telegramID int64, username string) string {
	if username == "" {
		username = "unknown"
	}
	return fmt.Sprintf("%d (%s)", telegramID, username)
}

// renderDeviceRecord renders the verification payload as key/value lines.
// Keys are sorted so the same device always renders the same report.
func renderDeviceRecord(record imeicheck.DeviceRecord) string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<b>Device information:</b>\n")
	for _, key := range keys {
		value := record[key]
		if boolean, ok := value.(bool); ok {
			if boolean {
				value = "yes"
			} else {
				value = "no"
			}
		}
		fmt.Fprintf(&sb, "🔹 <b>%s:</b> %v\n", key, value)
	}
	return sb.String()
}
