package dynamo

// Attribute names shared between update maps and table definitions.
const (
	fieldEmail            = "email"
	fieldEmailConfirmed   = "email_confirmed"
	fieldPasswordHash     = "password_hash"
	fieldName             = "name"
	fieldRole             = "role"
	fieldActive           = "active"
	fieldClientID         = "client_id"
	fieldEnable           = "enable"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
)
