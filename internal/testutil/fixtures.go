// Package testutil provides raw-socket client stand-ins for the LS and GS
// wire protocols, for use by the integration suites under tests/integration.
// Each client type hand-rolls just enough of the real handshake (RSA key
// exchange, Blowfish/XOR framing) to drive a server end to end without
// depending on a real L2 client binary.
package testutil

// fixtures holds canned test data shared across integration suites.
type fixtures struct {
	ValidAccount string
	ValidHash    string
}

// Fixtures is the shared set of canned test values.
var Fixtures = fixtures{
	ValidAccount: "testuser",
	ValidHash:    "5f4dcc3b5aa765d61d8327deb882cf99",
}
