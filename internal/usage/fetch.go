package usage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Endpoint is the remote quota service.
const Endpoint = "https://chatgpt.com/backend-api/wham/usage"

// FetchFunc is the live-fetch seam the client composes over.
type FetchFunc func(ctx context.Context, accessToken string) (*Snapshot, error)

// The transport timeout lives in the context; the client itself stays plain.
var httpClient = &http.Client{}

// Fetch issues one bounded-time request to the quota endpoint. Failures are
// classified: 401/403 auth, >=500 server, other non-200 network, bad bodies
// parse, context expiry timeout. An unnormalizable 200 body is a parse
// failure, never a success with defaults.
func Fetch(ctx context.Context, accessToken string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("building usage request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &Error{Kind: KindTimeout, Message: "usage request timed out"}
		}
		return nil, &Error{Kind: KindNetwork, Message: "usage request failed"}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindAuth, Message: "usage request unauthorized"}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindServer, Message: "usage service error"}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("usage request failed (%d)", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Message: "usage request timed out"}
		}
		return nil, &Error{Kind: KindNetwork, Message: "reading usage response failed"}
	}

	snapshot, ok := Normalize(body)
	if !ok {
		return nil, &Error{Kind: KindParse, Message: "usage response malformed"}
	}
	return snapshot, nil
}
