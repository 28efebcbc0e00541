package registry

import "sync"

// SessionKey mirrors login.SessionKey's four-int32 shape without importing
// the login package (which in turn depends on this one for kick/broadcast
// wiring) — callers convert at the boundary, a one-line field copy.
type SessionKey struct {
	LoginOkID1 int32
	LoginOkID2 int32
	PlayOkID1  int32
	PlayOkID2  int32
}

// CharsOnServer is one GS's census for an account: how many characters
// exist there and, for those pending deletion, seconds until each is gone.
type CharsOnServer struct {
	TotalChars       int
	DeletionSchedule []int64
}

// PlayerInfo is what the LS knows about one logged-in account: its session
// key, whether it has finished LS auth, which GS (if any) it has joined,
// and the per-GS character census gathered via RequestChars.
type PlayerInfo struct {
	mu sync.RWMutex

	accountName string
	sessionKey  SessionKey
	isAuthed    bool
	isJoinedGS  bool
	gameServer  int // 0 means "none"
	charsPerGS  map[int]CharsOnServer
}

func newPlayerInfo(accountName string, key SessionKey) *PlayerInfo {
	return &PlayerInfo{accountName: accountName, sessionKey: key, isAuthed: true}
}

func (p *PlayerInfo) AccountName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accountName
}

func (p *PlayerInfo) SessionKey() SessionKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionKey
}

func (p *PlayerInfo) SetSessionKey(key SessionKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionKey = key
}

func (p *PlayerInfo) IsAuthed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isAuthed
}

// IsJoinedGS reports whether the player is currently attached to a GS, and
// which one.
func (p *PlayerInfo) IsJoinedGS() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gameServer, p.isJoinedGS
}

func (p *PlayerInfo) setJoinedGS(gsID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isJoinedGS = true
	p.gameServer = gsID
}

func (p *PlayerInfo) clearJoinedGS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isJoinedGS = false
	p.gameServer = 0
}

func (p *PlayerInfo) setChars(gsID int, census CharsOnServer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.charsPerGS == nil {
		p.charsPerGS = make(map[int]CharsOnServer)
	}
	p.charsPerGS[gsID] = census
}

// CharsOn returns the stored census for gsID, if a ReplyChars for it has
// arrived.
func (p *PlayerInfo) CharsOn(gsID int) (CharsOnServer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.charsPerGS[gsID]
	return c, ok
}

// KickFunc is how PlayerRegistry asks the caller to actually disconnect a
// player — a targeted notify to one GS, or a broadcast to all of them when
// the colliding entry was never attached to a GS.
type KickFunc func(accountName string, gsID int, broadcast bool)

// PlayerRegistry is the LS-side account_name → PlayerInfo map: the
// single-login invariant, GS attach/detach bookkeeping, and the broker-fed
// upsert used when a GS reports players the LS never saw authenticate.
type PlayerRegistry struct {
	mu      sync.RWMutex
	players map[string]*PlayerInfo
}

// NewPlayerRegistry creates an empty registry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{players: make(map[string]*PlayerInfo)}
}

// OnPlayerLogin enforces the single-login invariant for a freshly
// LS-authenticated account. When no prior entry exists for accountName, the
// new PlayerInfo is installed and OnPlayerLogin reports admitted=true. When
// a prior entry already exists, the new login is REJECTED: the colliding
// entry is evicted, the caller's kick hook is invoked against it, and
// admitted=false is returned — the caller must answer the new connection
// with PlayerLoginFail{ReasonAccountInUse} and close it without installing
// a PlayerInfo for it. If the colliding entry was already attached to a
// specific GS, kick is targeted at that GS; otherwise it is broadcast,
// since the LS cannot know which GS (if any) still thinks the account is
// connected.
func (r *PlayerRegistry) OnPlayerLogin(accountName string, key SessionKey, kick KickFunc) (admitted bool) {
	r.mu.Lock()
	existing, had := r.players[accountName]
	if had {
		delete(r.players, accountName)
	} else {
		r.players[accountName] = newPlayerInfo(accountName, key)
	}
	r.mu.Unlock()

	if !had {
		return true
	}
	if gsID, joined := existing.IsJoinedGS(); joined {
		kick(accountName, gsID, false)
	} else {
		kick(accountName, 0, true)
	}
	return false
}

// OnPlayerLogout removes accountName's entry entirely.
func (r *PlayerRegistry) OnPlayerLogout(accountName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, accountName)
}

// Get returns the PlayerInfo for accountName, if any.
func (r *PlayerRegistry) Get(accountName string) (*PlayerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[accountName]
	return p, ok
}

// WithPlayer runs fn against accountName's PlayerInfo if present, reporting
// whether an entry existed to run it against.
func (r *PlayerRegistry) WithPlayer(accountName string, fn func(*PlayerInfo)) bool {
	r.mu.RLock()
	p, ok := r.players[accountName]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Remove drops accountName's entry unconditionally.
func (r *PlayerRegistry) Remove(accountName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, accountName)
}

// RemoveAllForGS drops every player attached to gsID — called when a GS
// connection is lost and its whole player set must be considered gone.
func (r *PlayerRegistry) RemoveAllForGS(gsID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.players {
		if id, joined := p.IsJoinedGS(); joined && id == gsID {
			delete(r.players, name)
		}
	}
}

// OnPlayersInGame marks every name in accountNames as joined to gsID. If an
// account has no registry entry yet — the GS reported a player the LS never
// saw authenticate, e.g. after an LS restart — a minimal authed/joined
// PlayerInfo is constructed and inserted rather than the update being
// dropped.
func (r *PlayerRegistry) OnPlayersInGame(gsID int, accountNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range accountNames {
		p, ok := r.players[name]
		if !ok {
			p = newPlayerInfo(name, SessionKey{})
			r.players[name] = p
		}
		p.setJoinedGS(gsID)
	}
}

// OnPlayerLeftGame clears the joined-GS flag without removing the account
// entirely — the player is still LS-authed, just no longer in a world.
func (r *PlayerRegistry) OnPlayerLeftGame(accountName string) {
	r.mu.RLock()
	p, ok := r.players[accountName]
	r.mu.RUnlock()
	if ok {
		p.clearJoinedGS()
	}
}

// UpdateChars merges one GS's ReplyChars census into accountName's entry.
// A census for an account the registry no longer tracks (logged out while
// the request was in flight) is dropped.
func (r *PlayerRegistry) UpdateChars(gsID int, accountName string, census CharsOnServer) bool {
	r.mu.RLock()
	p, ok := r.players[accountName]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	p.setChars(gsID, census)
	return true
}

// CountForGS returns how many tracked accounts are currently joined to gsID.
func (r *PlayerRegistry) CountForGS(gsID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.players {
		if id, joined := p.IsJoinedGS(); joined && id == gsID {
			n++
		}
	}
	return n
}

// Count returns the number of tracked accounts.
func (r *PlayerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
