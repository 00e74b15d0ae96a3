package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"anrbot/internal/poll"
)

type apiResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
	} `json:"json"`
}

// err turns Reddit's in-band error list into an error. RATELIMIT entries
// become poll.ErrRateLimited so the caller can back off and retry.
func (r apiResponse) err() error {
	if len(r.JSON.Errors) == 0 {
		return nil
	}
	var msgs []string
	limited := false
	for _, e := range r.JSON.Errors {
		parts := make([]string, 0, len(e))
		for _, p := range e {
			parts = append(parts, fmt.Sprint(p))
		}
		if len(parts) > 0 && parts[0] == "RATELIMIT" {
			limited = true
		}
		msgs = append(msgs, strings.Join(parts, ": "))
	}
	if limited {
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), poll.ErrRateLimited)
	}
	return fmt.Errorf("reddit: %s", strings.Join(msgs, "; "))
}

// Reply posts text as a reply to the thing with fullname id (t1_ or t3_).
func (c *Client) Reply(ctx context.Context, id, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {id},
		"text":     {text},
	}
	var resp apiResponse
	if err := c.post(ctx, "/api/comment", form, &resp); err != nil {
		return err
	}
	return resp.err()
}
