// Package httpclient provides small helpers for calling JSON HTTP APIs.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetResource GETs baseURL+endpoint and decodes the JSON body into T.
// Responses with a status code outside acceptedStatusCodes are an error.
func GetResource[T any](ctx context.Context, client *http.Client, baseURL string, endpoint string, acceptedStatusCodes []int) (T, error) {
	var resource T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+endpoint, nil)
	if err != nil {
		return resource, fmt.Errorf("couldn't build request for %s: %w", endpoint, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return resource, fmt.Errorf("couldn't GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range acceptedStatusCodes {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		return resource, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return resource, fmt.Errorf("couldn't decode %s response: %w", endpoint, err)
	}

	return resource, nil
}
