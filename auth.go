package lumen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Login exchanges credentials for a permanent API token. The email is the
// address used when signing up and is not case sensitive. A nil
// httpClient falls back to http.DefaultClient.
func Login(ctx context.Context, baseURL, email, password string, httpClient *http.Client) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body, err := json.Marshal(struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("marshaling login body: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/users/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTP(resp.StatusCode, raw)
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &login); err != nil {
		return "", &DecodeError{Raw: string(raw), cause: err}
	}
	return login.Token, nil
}
