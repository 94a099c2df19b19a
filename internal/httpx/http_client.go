package httpx

import (
	"net/http"
	"time"
)

const DefaultExternalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: DefaultExternalHTTPTimeout,
}

// ExternalHTTPClient returns the client shared by every tracker and chat
// integration so a single timeout setting governs all outbound calls.
func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}

func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := DefaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}
