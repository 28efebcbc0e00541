package constants

import "time"

// Fixture values shared by this module's test suites. Not for production
// code — they exist so packet- and server-level tests don't each hardcode
// their own magic numbers.

// Timings integration tests wait on for the server loop to reach a steady
// state or wind down.
const (
	TestServerStartupDelay  = 100 * time.Millisecond
	TestGracefulShutdownWait = 100 * time.Millisecond
)

// Concurrent-client counts for load-shaped tests.
const (
	TestConcurrentClientsSmall = 10
	TestConcurrentClientsLarge = 20
)

// Server fixture values, including their little-endian byte pairs so packet
// tests can assert on wire bytes directly instead of re-deriving them.
const (
	TestMaxPlayers = 1000
	TestServerPort = 8180 // 0x1FF4

	TestServerPortLE1 = 0xF4
	TestServerPortLE2 = 0x1F

	TestMaxPlayersLE1 = 0xE8
	TestMaxPlayersLE2 = 0x03
)

// TestInitPacketBufSize is a scratch buffer large enough to hold an
// encrypted Init frame (170 bytes minimum) with headroom.
const TestInitPacketBufSize = 256
