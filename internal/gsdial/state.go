package gsdial

// connState mirrors gameserver.GSConnectionState's five stages from the
// dialing side. Kept local rather than imported: internal/gameserver needs
// to hold a *Client to drive PlayerAuthRequest from its own packet
// handler, and importing gameserver from here would cycle back.
type connState int32

const (
	stateInitial connState = iota
	stateConnected
	stateBFConnected
	stateAuthed
	stateRegistered
)

func (s connState) String() string {
	switch s {
	case stateInitial:
		return "INITIAL"
	case stateConnected:
		return "CONNECTED"
	case stateBFConnected:
		return "BF_CONNECTED"
	case stateAuthed:
		return "AUTHED"
	case stateRegistered:
		return "REGISTERED"
	default:
		return "UNKNOWN"
	}
}
