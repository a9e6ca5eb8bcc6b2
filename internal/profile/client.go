package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GermanBurdin1/lesson-service/internal/models"
)

// Fallback display names used when the auth service cannot be reached.
const (
	FallbackStudentName = "Étudiant"
	FallbackTeacherName = "Enseignant"
)

// Client resolves user ids to display profiles via the auth service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error) {
	const op = "profile.Client.GetUserInfo"

	url := fmt.Sprintf("%s/auth/users/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var info models.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	return &info, nil
}
