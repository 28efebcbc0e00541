package login

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleSessionKey() SessionKey {
	return SessionKey{
		LoginOkID1: 123,
		LoginOkID2: 456,
		PlayOkID1:  789,
		PlayOkID2:  101112,
	}
}

func TestSessionManagerValidateAcceptsFullOrPartialKey(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	sm.Store("testuser", key, nil)

	require.True(t, sm.Validate("testuser", key, true), "all four fields should match")
	require.True(t, sm.Validate("testuser", key, false), "PlayOk-only check should match")
}

func TestSessionManagerValidatePlayOkOnlyIgnoresLoginOkMismatch(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	sm.Store("testuser", key, nil)

	wrongLoginOk := SessionKey{
		LoginOkID1: 999,
		LoginOkID2: 888,
		PlayOkID1:  key.PlayOkID1,
		PlayOkID2:  key.PlayOkID2,
	}

	require.True(t, sm.Validate("testuser", wrongLoginOk, false), "PlayOk pair still matches")
	require.False(t, sm.Validate("testuser", wrongLoginOk, true), "LoginOk pair is wrong")
}

func TestSessionManagerValidateUnknownAccountFails(t *testing.T) {
	sm := NewSessionManager()
	require.False(t, sm.Validate("nonexistent", sampleSessionKey(), true))
}

func TestSessionManagerValidateWrongKeyFails(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	sm.Store("testuser", key, nil)

	wrongKey := SessionKey{LoginOkID1: 999, LoginOkID2: 888, PlayOkID1: 777, PlayOkID2: 666}
	require.False(t, sm.Validate("testuser", wrongKey, true))
}

func TestSessionManagerRemoveInvalidatesSession(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	sm.Store("testuser", key, nil)
	require.True(t, sm.Validate("testuser", key, true))

	sm.Remove("testuser")
	require.False(t, sm.Validate("testuser", key, true))
}

func TestSessionManagerConcurrentAccessDoesNotRace(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()

	const accounts = 100
	accountName := func(idx int) string { return "user" + string(rune('0'+idx%10)) }

	var wg sync.WaitGroup
	for i := range accounts {
		wg.Add(3)
		go func(idx int) { defer wg.Done(); sm.Store(accountName(idx), key, nil) }(i)
		go func(idx int) { defer wg.Done(); sm.Validate(accountName(idx), key, true) }(i)
		go func(idx int) { defer wg.Done(); sm.Remove(accountName(idx)) }(i)
	}
	wg.Wait()
}

func TestSessionManagerCleanExpiredDropsStaleSessions(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	sm.StoreInfo("testuser", &SessionInfo{
		SessionKey: key,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	})

	sm.CleanExpired(time.Hour)

	require.False(t, sm.Validate("testuser", key, true), "session older than the TTL should be gone")
}

func TestSessionManagerCount(t *testing.T) {
	sm := NewSessionManager()
	key := sampleSessionKey()
	require.Equal(t, 0, sm.Count())

	sm.Store("user1", key, nil)
	sm.Store("user2", key, nil)
	sm.Store("user3", key, nil)
	require.Equal(t, 3, sm.Count())

	sm.Remove("user2")
	require.Equal(t, 2, sm.Count())
}
