package gameserver

import "sync"

// ClientManager manages all connected game clients, keyed by account name.
// Thread-safe for concurrent access.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*GameClient // key: accountName
}

// NewClientManager creates a new client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*GameClient),
	}
}

// Register adds a client to the manager.
// Called when client completes authentication (after AuthLogin).
func (cm *ClientManager) Register(accountName string, client *GameClient) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[accountName] = client
}

// Unregister removes a client from the manager.
// Called when client disconnects or logs out.
func (cm *ClientManager) Unregister(accountName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, accountName)
}

// GetClient returns the client for given account name.
// Returns nil if not found.
func (cm *ClientManager) GetClient(accountName string) *GameClient {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[accountName]
}

// Count returns total number of connected clients.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// ForEachClient iterates over all connected clients.
// fn receives GameClient pointer. If fn returns false, iteration stops.
func (cm *ClientManager) ForEachClient(fn func(*GameClient) bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, client := range cm.clients {
		if !fn(client) {
			return
		}
	}
}

// AccountNames returns a snapshot of every registered account name —
// what the GS-side LS dialer reports in PlayerInGame on (re)registration.
func (cm *ClientManager) AccountNames() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	names := make([]string, 0, len(cm.clients))
	for name := range cm.clients {
		names = append(names, name)
	}
	return names
}
