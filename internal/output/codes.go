// Package output provides JSON/YAML/styled output formatting and error handling.
package output

// Exit codes for the sitedata CLI.
const (
	ExitOK          = 0 // Success
	ExitUsage       = 1 // Invalid arguments or flags
	ExitNotFound    = 2 // Resource not found (404)
	ExitNetwork     = 3 // No response: connection/DNS/timeout
	ExitHTTP        = 4 // Server returned a non-2xx status
	ExitFormat      = 5 // Response was not the JSON document we expected
	ExitApplication = 6 // 2xx body signalled a resource-specific failure
)

// Error codes for the JSON envelope.
const (
	CodeUsage       = "usage"
	CodeNotFound    = "not_found"
	CodeNetwork     = "network"
	CodeHTTP        = "http"
	CodeFormat      = "format"
	CodeApplication = "application"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeNetwork:
		return ExitNetwork
	case CodeHTTP:
		return ExitHTTP
	case CodeFormat:
		return ExitFormat
	case CodeApplication:
		return ExitApplication
	default:
		return ExitHTTP
	}
}
