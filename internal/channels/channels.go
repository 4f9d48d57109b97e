// Package channels holds the redis key and channel prefixes shared by the
// collector and the server.
package channels

const (
	// Insert prefixes finalized shots awaiting storage. Keys are
	// insert:<unix ms>.
	Insert = "insert:"
	// Jump prefixes live jump notifications. They are published only.
	Jump = "jump:"
)

// Status is the MQTT topic carrying the collector's online/offline state.
const Status = "basket/collector/status"
