package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// webhookEvents are the events the review pipeline subscribes to.
var webhookEvents = []string{"pull_request"}

// WebhookConfig describes the callback GitHub should deliver events to.
type WebhookConfig struct {
	// CallbackURL is the publicly reachable webhook endpoint.
	CallbackURL string
	// Secret signs deliveries so the receiver can verify them.
	Secret string
}

type hookPayload struct {
	ID     int64    `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Active bool     `json:"active"`
	Events []string `json:"events"`
	Config struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Secret      string `json:"secret,omitempty"`
	} `json:"config"`
}

// SetupWebhook installs a pull request webhook on the repository and
// returns the hook ID. If a hook pointing at the same callback URL
// already exists it is refreshed and its ID returned instead of
// creating a duplicate.
func (c *Client) SetupWebhook(ctx context.Context, token, owner, repo string, cfg WebhookConfig) (string, error) {
	existing, err := c.findWebhook(ctx, token, owner, repo, cfg.CallbackURL)
	if err != nil {
		return "", err
	}
	if existing != 0 {
		hookID := strconv.FormatInt(existing, 10)
		if err := c.UpdateWebhook(ctx, token, owner, repo, hookID, cfg); err != nil {
			return "", err
		}
		return hookID, nil
	}

	payload := hookPayload{
		Name:   "web",
		Active: true,
		Events: webhookEvents,
	}
	payload.Config.URL = cfg.CallbackURL
	payload.Config.ContentType = "json"
	payload.Config.Secret = cfg.Secret

	u := fmt.Sprintf("%s/repos/%s/%s/hooks",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	var created hookPayload
	if err := c.postJSON(ctx, token, u, payload, &created); err != nil {
		return "", fmt.Errorf("setup webhook on %s/%s: %w", owner, repo, err)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// UpdateWebhook repoints an existing hook at the callback URL, refreshing
// its secret and event subscription.
func (c *Client) UpdateWebhook(ctx context.Context, token, owner, repo, hookID string, cfg WebhookConfig) error {
	payload := hookPayload{
		Active: true,
		Events: webhookEvents,
	}
	payload.Config.URL = cfg.CallbackURL
	payload.Config.ContentType = "json"
	payload.Config.Secret = cfg.Secret

	u := fmt.Sprintf("%s/repos/%s/%s/hooks/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(hookID))

	if err := c.patchJSON(ctx, token, u, payload); err != nil {
		return fmt.Errorf("update webhook %s on %s/%s: %w", hookID, owner, repo, err)
	}
	return nil
}

// RemoveWebhook deletes a hook. A hook that is already gone is treated
// as removed.
func (c *Client) RemoveWebhook(ctx context.Context, token, owner, repo, hookID string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/hooks/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(hookID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	c.addHeaders(req, token)

	if err := c.do(req, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("remove webhook %s on %s/%s: %w", hookID, owner, repo, err)
	}
	return nil
}

// findWebhook returns the ID of an existing hook whose callback matches,
// or 0 when none exists.
func (c *Client) findWebhook(ctx context.Context, token, owner, repo, callbackURL string) (int64, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/hooks",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	var hooks []hookPayload
	if err := c.getJSON(ctx, token, u, &hooks); err != nil {
		return 0, fmt.Errorf("list webhooks on %s/%s: %w", owner, repo, err)
	}

	for _, hook := range hooks {
		if hook.Config.URL == callbackURL {
			return hook.ID, nil
		}
	}
	return 0, nil
}

// patchJSON executes a PATCH request with a JSON body.
func (c *Client) patchJSON(ctx context.Context, token, u string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.addHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}
