package constant

const (
	DefaultLoginMaxAttempts   = 5
	DefaultLockoutWindowMin   = 60
	DefaultLockoutDurationMin = 15
	DefaultSessionExpiryMin   = 1440
	DefaultResetExpiryMin     = 60

	HeaderRequestID = "X-Request-ID"
	BearerScheme    = "Bearer"
)
