package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"rasgo-sdk/pkg/api"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the Rasgo web API.
type Client struct {
	client  *resty.Client
	timeout time.Duration
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{client: c, timeout: timeout}
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, pathParams map[string]string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.client.R().SetContext(ctx).SetPathParams(pathParams)
	if body != nil {
		req.SetBody(body)
	}

	res, err := req.Execute(method, endpoint)
	if err != nil {
		slog.Error("unable to reach rasgo api", "method", method, "endpoint", endpoint, "error", err)
		return api.Errorf(api.ErrRequestFailed, "unable to reach rasgo api: %v", err)
	}

	if !res.IsSuccess() {
		var er errorResponse
		detail := res.String()
		if err := json.Unmarshal(res.Body(), &er); err == nil {
			if er.Detail != "" {
				detail = er.Detail
			} else if er.Message != "" {
				detail = er.Message
			}
		}
		slog.Error("rasgo api returned error", "status_code", res.StatusCode(), "endpoint", endpoint, "body", res.String())
		return api.StatusError(res.StatusCode(), "rasgo api returned status %d: %s", res.StatusCode(), detail)
	}

	if result != nil {
		if err := json.Unmarshal(res.Body(), result); err != nil {
			return fmt.Errorf("error parsing response from %s: %w", endpoint, err)
		}
	}
	return nil
}

func (c *Client) PostDataframeProfile(ctx context.Context, id string, payload api.ColumnProfiles) error {
	return c.do(ctx, resty.MethodPost, "/v1/dataframes/{id}/profile", map[string]string{"id": id}, payload, nil)
}

func (c *Client) PostFeatureImportance(ctx context.Context, id string, payload api.FeatureImportanceStats) error {
	return c.do(ctx, resty.MethodPost, "/v1/dataframes/{id}/feature-importance", map[string]string{"id": id}, payload, nil)
}

func (c *Client) GetUserProfile(ctx context.Context) (api.UserProfile, error) {
	var profile api.UserProfile
	if err := c.do(ctx, resty.MethodGet, "/v1/users/me", nil, nil, &profile); err != nil {
		return api.UserProfile{}, err
	}
	return profile, nil
}
