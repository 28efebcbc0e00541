package login

// ConnectionState is the LS-client handshake progression: Init sent →
// GameGuard verified → login/password accepted → server list served →
// game server chosen.
type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateAuthedGG
	StateAuthedLogin
	StateServerListed
	StateServerSelected
)

var connectionStateNames = map[ConnectionState]string{
	StateConnected:      "CONNECTED",
	StateAuthedGG:       "AUTHED_GG",
	StateAuthedLogin:    "AUTHED_LOGIN",
	StateServerListed:   "SERVER_LISTED",
	StateServerSelected: "SERVER_SELECTED",
}

func (s ConnectionState) String() string {
	if name, ok := connectionStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
