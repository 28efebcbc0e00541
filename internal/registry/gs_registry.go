// Package registry holds the three concurrent-map registries shared between
// the login server and the game-server listener: registered game servers,
// logged-in players, and the generic peer-sink lookup the broker dispatches
// through. All three are a sync.RWMutex over a plain map with getter/setter
// methods, never a raw exported field.
package registry

import (
	"bytes"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
)

// HostEntry pairs a subnet with the IP a game server should be reached at
// when a client's address falls inside it. Moved out of GameServerInfo's
// former flat []string and restructured per the narrow-to-wide resolution
// rule: the most specific (longest-prefix) subnet that contains the client
// address wins, so a LAN-only override can sit alongside a catch-all.
type HostEntry struct {
	Subnet *net.IPNet
	IP     net.IP
}

// GameServerInfo holds everything the LS tracks about one registered GS.
type GameServerInfo struct {
	mu sync.RWMutex

	id         int
	hexID      []byte
	port       int
	maxPlayers int
	status     int
	serverType int
	ageLimit   int
	hosts      []HostEntry // sorted narrow (most specific) → wide on every SetHosts

	isAuthed atomic.Bool

	showingBrackets bool
	isPVP           bool
}

// NewGameServerInfo creates a GameServerInfo for a not-yet-authed GS.
func NewGameServerInfo(id int, hexID []byte) *GameServerInfo {
	return &GameServerInfo{id: id, hexID: hexID}
}

func (gsi *GameServerInfo) ID() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.id
}

func (gsi *GameServerInfo) SetID(id int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.id = id
}

func (gsi *GameServerInfo) HexID() []byte {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.hexID
}

func (gsi *GameServerInfo) IsAuthed() bool { return gsi.isAuthed.Load() }

func (gsi *GameServerInfo) SetAuthed(authed bool) { gsi.isAuthed.Store(authed) }

func (gsi *GameServerInfo) Port() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.port
}

func (gsi *GameServerInfo) SetPort(port int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.port = port
}

func (gsi *GameServerInfo) MaxPlayers() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.maxPlayers
}

func (gsi *GameServerInfo) SetMaxPlayers(max int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.maxPlayers = max
}

func (gsi *GameServerInfo) Status() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.status
}

func (gsi *GameServerInfo) SetStatus(status int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.status = status
}

func (gsi *GameServerInfo) ServerType() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.serverType
}

func (gsi *GameServerInfo) SetServerType(serverType int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.serverType = serverType
}

func (gsi *GameServerInfo) AgeLimit() int {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.ageLimit
}

func (gsi *GameServerInfo) SetAgeLimit(ageLimit int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.ageLimit = ageLimit
}

// Hosts returns a copy of the resolution list, narrow-to-wide.
func (gsi *GameServerInfo) Hosts() []HostEntry {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	out := make([]HostEntry, len(gsi.hosts))
	copy(out, gsi.hosts)
	return out
}

// SetHosts replaces the resolution list, sorting narrow (longest prefix)
// to wide so ResolveHost can return on first match.
func (gsi *GameServerInfo) SetHosts(hosts []HostEntry) {
	sorted := make([]HostEntry, len(hosts))
	copy(sorted, hosts)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, _ := sorted[i].Subnet.Mask.Size()
		oj, _ := sorted[j].Subnet.Mask.Size()
		return oi > oj
	})

	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.hosts = sorted
}

// ResolveHost returns the IP a client at clientIP should be told to connect
// to, walking the narrow-to-wide sorted host list and returning the first
// subnet containing clientIP. Deployments normally list a 0.0.0.0/0
// catch-all; without one, a client no subnet claims gets loopback.
func (gsi *GameServerInfo) ResolveHost(clientIP net.IP) net.IP {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()

	for _, h := range gsi.hosts {
		if h.Subnet.Contains(clientIP) {
			return h.IP
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

func (gsi *GameServerInfo) ShowingBrackets() bool {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.showingBrackets
}

func (gsi *GameServerInfo) SetShowingBrackets(show bool) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.showingBrackets = show
}

func (gsi *GameServerInfo) IsPVP() bool {
	gsi.mu.RLock()
	defer gsi.mu.RUnlock()
	return gsi.isPVP
}

func (gsi *GameServerInfo) SetPVP(pvp bool) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.isPVP = pvp
}

// SetDown marks the server offline, mirroring a disconnect or a
// ServerStatus update that reports it going dark.
func (gsi *GameServerInfo) SetDown(statusDown int) {
	gsi.mu.Lock()
	defer gsi.mu.Unlock()
	gsi.isAuthed.Store(false)
	gsi.port = 0
	gsi.status = statusDown
}

// GSRegistry tracks every game server that has ever registered with this LS
// process, keyed by the single-byte GS id the protocol uses. A bitmap backs
// the O(1) free-id search for accept-alternate registrations. Registration
// is purely wire-driven at runtime, nothing persists it across LS restarts.
type GSRegistry struct {
	mu         sync.RWMutex
	servers    map[int]*GameServerInfo
	freeBitmap [2]uint64 // bits for ids 1..127; bit 0 unused
}

// NewGSRegistry creates an empty registry with every id 1..127 free.
func NewGSRegistry() *GSRegistry {
	return &GSRegistry{
		servers:    make(map[int]*GameServerInfo),
		freeBitmap: [2]uint64{^uint64(0), ^uint64(0)},
	}
}

// Register registers a GS under an explicit id. Returns false if taken.
func (r *GSRegistry) Register(id int, info *GameServerInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.servers[id]; exists {
		return false
	}
	r.servers[id] = info
	r.markIDUsed(id)
	return true
}

// GetByID returns the GS registered under id, if any.
func (r *GSRegistry) GetByID(id int) (*GameServerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.servers[id]
	return info, ok
}

// RegisterWithFirstAvailableID assigns the lowest free id in 1..maxID.
func (r *GSRegistry) RegisterWithFirstAvailableID(info *GameServerInfo, maxID int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.firstAvailableID(maxID)
	if id == 0 {
		return 0, false
	}
	info.SetID(id)
	r.servers[id] = info
	r.markIDUsed(id)
	return id, true
}

func (r *GSRegistry) firstAvailableID(maxID int) int {
	if maxID >= 1 && maxID <= 63 {
		for id := 1; id <= maxID; id++ {
			if r.freeBitmap[0]&(1<<id) != 0 {
				return id
			}
		}
		return 0
	}

	for id := 1; id <= 63; id++ {
		if r.freeBitmap[0]&(1<<id) != 0 {
			return id
		}
	}
	for id := 64; id <= maxID && id <= 127; id++ {
		bitPos := id - 64
		if r.freeBitmap[1]&(1<<bitPos) != 0 {
			return id
		}
	}
	return 0
}

func (r *GSRegistry) markIDUsed(id int) {
	if id < 64 {
		r.freeBitmap[0] &^= 1 << id
	} else {
		r.freeBitmap[1] &^= 1 << (id - 64)
	}
}

func (r *GSRegistry) markIDFree(id int) {
	if id < 64 {
		r.freeBitmap[0] |= 1 << id
	} else {
		r.freeBitmap[1] |= 1 << (id - 64)
	}
}

// ValidateHexID reports whether hexID matches the one registered for id.
func (r *GSRegistry) ValidateHexID(id int, hexID []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.servers[id]
	if !ok {
		return false
	}
	return bytes.Equal(info.HexID(), hexID)
}

// List returns a snapshot of every registered GS.
func (r *GSRegistry) List() []*GameServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*GameServerInfo, 0, len(r.servers))
	for _, info := range r.servers {
		out = append(out, info)
	}
	return out
}

// Remove drops id from the registry and frees it for reuse.
func (r *GSRegistry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.servers, id)
	r.markIDFree(id)
}

// ParseHostEntries converts "cidr=ip" config strings (e.g.
// "10.0.0.0/8=10.0.0.5", "0.0.0.0/0=203.0.113.9") into HostEntry values.
func ParseHostEntries(raw []string) ([]HostEntry, error) {
	out := make([]HostEntry, 0, len(raw))
	for _, entry := range raw {
		var cidr, ipStr string
		if n, _ := fmt.Sscanf(entry, "%[^=]=%s", &cidr, &ipStr); n != 2 {
			return nil, fmt.Errorf("registry: malformed host entry %q, want cidr=ip", entry)
		}
		_, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("registry: invalid subnet in %q: %w", entry, err)
		}
		ip := net.ParseIP(ipStr)
		if ip == nil {
			return nil, fmt.Errorf("registry: invalid ip in %q", entry)
		}
		out = append(out, HostEntry{Subnet: subnet, IP: ip})
	}
	return out, nil
}
