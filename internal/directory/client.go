package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is the display data the directory exposes for a marketplace account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Directory resolves user ids to display data.
type Directory interface {
	Lookup(ctx context.Context, userID int) (User, error)
	BulkLookup(ctx context.Context, ids []int) ([]User, error)
}

// HTTPClient talks to the account service's internal user endpoints.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs an HTTPClient for the given base URL.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Lookup fetches a single user.
func (c *HTTPClient) Lookup(ctx context.Context, userID int) (User, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return User{}, ErrUserNotFound
	default:
		return User{}, fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, err
	}
	if user.ID == 0 {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// BulkLookup fetches multiple users in one call. Unknown ids are simply
// absent from the result.
func (c *HTTPClient) BulkLookup(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.Itoa(id))
	}
	endpoint := fmt.Sprintf("%s/internal/users?ids=%s", c.baseURL, url.QueryEscape(strings.Join(values, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory bulk lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Users []User `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Users, nil
}
