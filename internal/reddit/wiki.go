package reddit

import (
	"context"
	"net/url"
)

// ReadWiki returns the markdown source of a subreddit wiki page.
func (c *Client) ReadWiki(ctx context.Context, subreddit, page string) (string, error) {
	var resp struct {
		Data struct {
			ContentMD string `json:"content_md"`
		} `json:"data"`
	}
	path := "/r/" + url.PathEscape(subreddit) + "/wiki/" + url.PathEscape(page)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.ContentMD, nil
}

// WriteWiki replaces a subreddit wiki page.
func (c *Client) WriteWiki(ctx context.Context, subreddit, page, content, reason string) error {
	form := url.Values{
		"page":    {page},
		"content": {content},
		"reason":  {reason},
	}
	var resp apiResponse
	if err := c.post(ctx, "/r/"+url.PathEscape(subreddit)+"/api/wiki/edit", form, &resp); err != nil {
		return err
	}
	return resp.err()
}
