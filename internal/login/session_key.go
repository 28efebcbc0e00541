package login

import "math/rand/v2"

// SessionKey is the four-int32 identifier pair LoginOk/PlayOk hand the
// client: one pair it must echo back to the LS (LoginOkID), one it carries
// over to the GS for PlayerAuthRequest validation (PlayOkID).
type SessionKey struct {
	LoginOkID1 int32
	LoginOkID2 int32
	PlayOkID1  int32
	PlayOkID2  int32
}

// NewSessionKey draws a fresh, random key for a newly authenticated
// session.
func NewSessionKey() SessionKey {
	return SessionKey{
		LoginOkID1: rand.Int32(),
		LoginOkID2: rand.Int32(),
		PlayOkID1:  rand.Int32(),
		PlayOkID2:  rand.Int32(),
	}
}

// CheckLoginPair reports whether (ok1, ok2) matches this key's LoginOk
// pair.
func (sk SessionKey) CheckLoginPair(ok1, ok2 int32) bool {
	return sk.LoginOkID1 == ok1 && sk.LoginOkID2 == ok2
}
