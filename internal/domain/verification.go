package domain

// VerificationNamespace identifies which flow a verification record belongs
// to. The namespace picks the Redis key prefix and the value encoding, so
// the same discriminator can never collide across flows.
type VerificationNamespace int

const (
	// NamespacePasswordReset stores a 6-digit code keyed by email.
	NamespacePasswordReset VerificationNamespace = iota
	// NamespaceInvite stores the invited email keyed by an opaque token.
	NamespaceInvite
	// NamespaceEmailChange stores {new_email, code} keyed by user id.
	NamespaceEmailChange
	// NamespaceSignatureLink stores {userId, craId} keyed by an opaque token.
	NamespaceSignatureLink
)

// KeyPrefix returns the Redis key prefix for the namespace. These are wire
// format: existing records written by older deployments must keep resolving.
func (n VerificationNamespace) KeyPrefix() string {
	switch n {
	case NamespacePasswordReset:
		return "pwdreset"
	case NamespaceInvite:
		return "invite"
	case NamespaceEmailChange:
		return "emailchange"
	case NamespaceSignatureLink:
		return "signlink"
	}
	return "unknown"
}

// SecretKeyed reports whether records in this namespace are addressed by
// their secret (token-in-a-link flows) rather than by subject.
func (n VerificationNamespace) SecretKeyed() bool {
	return n == NamespaceInvite || n == NamespaceSignatureLink
}

// Payload field names used inside verification record values.
const (
	PayloadEmail    = "email"
	PayloadNewEmail = "new_email"
	PayloadUserID   = "userId"
	PayloadCRAID    = "craId"
)

// VerificationRecord is one ephemeral secret plus its namespace-specific
// payload. Expiry is enforced by the store TTL, not carried here.
type VerificationRecord struct {
	Secret  string
	Payload map[string]string
}
