package ratelimit

// Operation names a key class in the key-value store. Counters, cool-down
// flags and denylist entries never share a class.
type Operation string

const (
	SignupResendCounter  Operation = "signup-email-resends"
	SignupResendCooldown Operation = "signup-email-rate-limit"
	LoginResendCounter   Operation = "auth-email-resends"
	LoginResendCooldown  Operation = "auth-email-rate-limit"
	RevokedTokenID       Operation = "blacklist-jti"
)

// KeyFor builds the store key for an operation and identity (normalized email or jti).
func KeyFor(op Operation, identity string) string {
	return string(op) + ":" + identity
}

// ResendPolicy pairs the counter and cool-down classes of one resend path.
type ResendPolicy struct {
	Name     string
	Counter  Operation
	Cooldown Operation
}

var (
	SignupResend = ResendPolicy{Name: "signup", Counter: SignupResendCounter, Cooldown: SignupResendCooldown}
	LoginResend  = ResendPolicy{Name: "login", Counter: LoginResendCounter, Cooldown: LoginResendCooldown}
)
