package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// UserIDKey is the context key used to store the authenticated user's ID (string).
const UserIDKey Key = "userID"

// SessionIDKey is the context key used to store the current session ID (string).
const SessionIDKey Key = "sessionID"

// ClientIPKey and UserAgentKey carry the raw device information of the request.
const (
	ClientIPKey  Key = "clientIP"
	UserAgentKey Key = "userAgent"
)

func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserIDKey).(string)
	return v, ok && v != ""
}

func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(SessionIDKey).(string)
	return v, ok && v != ""
}

// Client returns the IP address and user agent recorded for the request, or
// empty strings when none were recorded.
func Client(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(ClientIPKey).(string)
	userAgent, _ = ctx.Value(UserAgentKey).(string)
	return ip, userAgent
}
