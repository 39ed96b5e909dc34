package models

// CreatedViaLineBot marks records created through the bot-facing API.
const CreatedViaLineBot = "line_bot"

// User represents a website account.
//
// Users are never registered explicitly: the first authenticated request
// carrying a LINE user ID creates the account (get-or-create).
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// LineUserID is the linked messaging-bot account ID (unique).
	LineUserID string

	// CreatedVia records which surface created the account.
	CreatedVia string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
