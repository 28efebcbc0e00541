package model

import "time"

// Account is the persisted row a login attempt authenticates against —
// the source of truth for everything downstream of GetOrCreateAccount.
type Account struct {
	Login        string
	PasswordHash string
	AccessLevel  int
	LastServer   int
	LastIP       string
	LastActive   time.Time
}
