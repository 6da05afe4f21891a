package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Registered codes.
const (
	CodeDialFailed     = "M001"
	CodeListenFailed   = "M002"
	CodePeerLost       = "M003"
	CodeAcceptFailed   = "M004"
	CodeWriteFailed    = "M005"
	CodeSessionActive  = "M006"
	CodeNotConnected   = "M007"
	CodeInvalidFrame   = "M101"
	CodeUnknownHeader  = "M102"
	CodeBadCommand     = "M103"
	CodeBadResync      = "M104"
	CodeObjectNotFound = "M201"
	CodeLevelMismatch  = "M202"
	CodeClassNotFound  = "M301"
	CodeResyncRefused  = "M302"
	CodeConfigInvalid  = "M401"
	CodeConfigValue    = "M402"
	CodeConfigWrite    = "M403"
	CodeConfigMissing  = "M404"
	CodeBadAddress     = "M501"
	CodeCaptureRead    = "M502"
	CodeCaptureWrite   = "M503"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Connection Errors (M001-M099)
	// ============================================

	CodeDialFailed: {
		Category:   CategoryConnection,
		Message:    "Connection failed",
		Detail:     "The server could not be reached. The session is back in the Disconnected state.",
		Suggestion: "Check that a server is bound on that address and port, then connect again.",
	},
	CodeListenFailed: {
		Category:   CategoryConnection,
		Message:    "Bind failed",
		Detail:     "The listening socket could not be created.",
		Suggestion: "Choose a free port, or stop the process already listening on it.",
	},
	CodePeerLost: {
		Category: CategoryConnection,
		Message:  "Peer disconnected",
		Detail:   "The remote end closed the connection or the connection failed. The peer was dropped.",
	},
	CodeAcceptFailed: {
		Category: CategoryConnection,
		Message:  "Accept failed",
		Detail:   "An inbound connection could not be accepted.",
	},
	CodeWriteFailed: {
		Category: CategoryConnection,
		Message:  "Send failed",
		Detail:   "Frames could not be written to the peer within the write timeout.",
	},
	CodeSessionActive: {
		Category:   CategoryConnection,
		Message:    "Session already active",
		Detail:     "Only one client or server session can run at a time.",
		Suggestion: "Cancel the current session first.",
	},
	CodeNotConnected: {
		Category: CategoryConnection,
		Message:  "Not connected",
		Detail:   "The operation needs an active session.",
	},

	// ============================================
	// Protocol Errors (M101-M199)
	// ============================================

	CodeInvalidFrame: {
		Category: CategoryProtocol,
		Message:  "Invalid frame length",
		Detail:   "A frame declared a negative or oversized length. The stream position is lost, so the connection was closed.",
	},
	CodeUnknownHeader: {
		Category: CategoryProtocol,
		Message:  "Unknown frame header",
		Detail:   "A frame started with a header byte that is not Update, Resync or Exit. The frame was dropped.",
	},
	CodeBadCommand: {
		Category: CategoryProtocol,
		Message:  "Malformed command",
		Detail:   "A command inside an Update frame could not be decoded. Commands before it were applied; the rest of the frame was dropped and not relayed.",
	},
	CodeBadResync: {
		Category: CategoryProtocol,
		Message:  "Malformed resync payload",
		Detail:   "A Resync entry could not be decoded. Entries before it were applied.",
	},

	// ============================================
	// Application Errors (M201-M299)
	// ============================================

	CodeObjectNotFound: {
		Category: CategoryApplication,
		Message:  "Object not found",
		Detail:   "A command referred to an object that does not exist locally. It may have been removed by another edit.",
	},
	CodeLevelMismatch: {
		Category:   CategoryApplication,
		Message:    "Level mismatch",
		Detail:     "An Update frame for another level was discarded.",
		Suggestion: "Open the same level on every peer.",
	},

	// ============================================
	// Resource Errors (M301-M399)
	// ============================================

	CodeClassNotFound: {
		Category:   CategoryResource,
		Message:    "Class not found",
		Detail:     "A Create command named a class that could not be resolved by path or intrinsic name. The object was not spawned.",
		Suggestion: "Make sure every peer has the same assets and blueprint classes.",
	},
	CodeResyncRefused: {
		Category: CategoryResource,
		Message:  "Resync refused",
		Detail:   "The full-state transfer exceeded the confirmation threshold and was declined.",
	},

	// ============================================
	// Config Errors (M401-M499)
	// ============================================

	CodeConfigInvalid: {
		Category:   CategoryConfig,
		Message:    "Invalid config file",
		Detail:     "mapsync.yaml could not be parsed.",
		Suggestion: "Check the YAML syntax and field names.",
	},
	CodeConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range.",
	},
	CodeConfigWrite: {
		Category: CategoryConfig,
		Message:  "Config write failed",
		Detail:   "The configuration file could not be written.",
	},
	CodeConfigMissing: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Run 'mapsync init' to write a default mapsync.yaml, or pass --config.",
	},

	// ============================================
	// CLI Errors (M501-M599)
	// ============================================

	CodeBadAddress: {
		Category:   CategoryCLI,
		Message:    "Invalid address",
		Detail:     "Addresses are host:port for TCP or ws://host:port/path for WebSocket.",
		Suggestion: "Example: mapsync connect 127.0.0.1:7777",
	},
	CodeCaptureRead: {
		Category: CategoryCLI,
		Message:  "Cannot read capture",
		Detail:   "The captured stream file could not be read.",
	},
	CodeCaptureWrite: {
		Category:   CategoryCLI,
		Message:    "Cannot write capture",
		Detail:     "The recording could not be created or uploaded.",
		Suggestion: "For s3:// destinations set AWS_REGION and AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
