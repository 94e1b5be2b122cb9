package constants

// ContextKeyUserID is the key under which the authenticated user ID is stored
// in both the session and the gin context.
const ContextKeyUserID = "user_id"

// Authentication
const (
	MinPasswordLength = 8
)

// Pagination
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)
