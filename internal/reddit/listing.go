package reddit

import (
	"context"
	"net/url"
	"strconv"

	"anrbot/internal/logger"
	"anrbot/internal/poll"
)

const pageSize = 100

// MaxPages bounds how far back a listing is followed. Reddit stops serving
// listing pages after roughly a thousand items anyway.
const MaxPages = 10

type thing struct {
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Selftext   string  `json:"selftext"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (t thing) item() poll.Item {
	body := t.Body
	if body == "" {
		body = t.Selftext
	}
	return poll.Item{
		ID:      t.Name,
		Author:  t.Author,
		Body:    body,
		Created: t.CreatedUTC,
	}
}

// Submissions streams the subreddit's newest submissions, newest first.
func (c *Client) Submissions(ctx context.Context, subreddit string) poll.Stream {
	return c.listing(ctx, "/r/"+url.PathEscape(subreddit)+"/new")
}

// Comments streams the subreddit's newest comments, newest first.
func (c *Client) Comments(ctx context.Context, subreddit string) poll.Stream {
	return c.listing(ctx, "/r/"+url.PathEscape(subreddit)+"/comments")
}

// listing fetches pages lazily, so a consumer that stops early costs only the
// pages it actually read.
func (c *Client) listing(ctx context.Context, path string) poll.Stream {
	return func(yield func(poll.Item, error) bool) {
		after := ""
		for page := 0; page < MaxPages; page++ {
			query := url.Values{"limit": {strconv.Itoa(pageSize)}}
			if after != "" {
				query.Set("after", after)
			}

			var l listing
			if err := c.get(ctx, path, query, &l); err != nil {
				yield(poll.Item{}, err)
				return
			}
			logger.Forum("%s page %d: %d items", path, page+1, len(l.Data.Children))

			for _, child := range l.Data.Children {
				if !yield(child.Data.item(), nil) {
					return
				}
			}

			after = l.Data.After
			if after == "" || len(l.Data.Children) == 0 {
				return
			}
		}
		logger.Warn("%s: stopped after %d pages without reaching the watermark", path, MaxPages)
	}
}
