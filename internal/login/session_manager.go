package login

import (
	"sync"
	"time"
)

// SessionManager tracks, per account, the session key a just-authenticated
// LS-client connection was issued — the state a later GS PlayerAuthRequest
// (or a reconnecting client) gets checked against. Backed by sync.Map since
// every login writes once and every subsequent lookup only reads.
type SessionManager struct {
	sessions sync.Map // map[string]*SessionInfo
}

// SessionInfo is one account's live session record. Exported so tests can
// backdate CreatedAt to exercise CleanExpired.
type SessionInfo struct {
	SessionKey SessionKey
	Client     *Client
	CreatedAt  time.Time
}

// NewSessionManager returns an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Store records key as account's current session, timestamped now.
func (sm *SessionManager) Store(account string, key SessionKey, client *Client) {
	sm.sessions.Store(account, &SessionInfo{
		SessionKey: key,
		Client:     client,
		CreatedAt:  time.Now(),
	})
}

// Validate reports whether key matches account's stored session. With
// showLicence set it checks all four key fields (LoginOkID and PlayOkID);
// otherwise only the PlayOkID pair, the subset the GS's PlayerAuthRequest
// carries.
func (sm *SessionManager) Validate(account string, key SessionKey, showLicence bool) bool {
	val, ok := sm.sessions.Load(account)
	if !ok {
		return false
	}
	stored := val.(*SessionInfo).SessionKey

	if showLicence {
		return stored == key
	}
	return stored.PlayOkID1 == key.PlayOkID1 && stored.PlayOkID2 == key.PlayOkID2
}

// Remove drops account's session.
func (sm *SessionManager) Remove(account string) {
	sm.sessions.Delete(account)
}

// CleanExpired drops every session whose CreatedAt is older than ttl.
func (sm *SessionManager) CleanExpired(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	sm.sessions.Range(func(key, value any) bool {
		if value.(*SessionInfo).CreatedAt.Before(cutoff) {
			sm.sessions.Delete(key.(string))
		}
		return true
	})
}

// Count reports the number of live sessions.
func (sm *SessionManager) Count() int {
	n := 0
	sm.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// StoreInfo installs a pre-built SessionInfo directly — tests use this to
// control CreatedAt for CleanExpired scenarios.
func (sm *SessionManager) StoreInfo(account string, info *SessionInfo) {
	sm.sessions.Store(account, info)
}
