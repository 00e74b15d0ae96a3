// Package poll scans a newest-first content stream down to the last
// watermark and answers every item that carries card tags.
package poll

import (
	"context"
	"iter"
	"strconv"

	"anrbot/internal/logger"
	"anrbot/internal/render"
)

// Item is one submission or comment. Created is seconds since the epoch.
type Item struct {
	ID      string
	Author  string
	Body    string
	Created float64
}

// Stream yields items newest first. The driver stops pulling as soon as it
// reaches an item at or below the watermark.
type Stream = iter.Seq2[Item, error]

// ReplySender posts a finished reply. *Replier is the production one.
type ReplySender interface {
	Reply(ctx context.Context, id, text string) error
}

// Summary counts what one pass did.
type Summary struct {
	Seen    int
	Replied int
	Ignored int
	Skipped int
	Failed  int
}

// Driver answers one stream.
type Driver struct {
	Label    string // POSTS or COMMENTS in log lines
	BotName  string
	Footer   string
	Renderer render.Renderer
	Resolver render.Resolver
	Sender   ReplySender

	summary Summary
}

// Summary returns the counts from the last ProcessNew call.
func (d *Driver) Summary() Summary {
	return d.summary
}

// ProcessNew answers every item newer than watermark and returns the new
// watermark: the newest creation time among items that were answered, or
// watermark itself when none was. A failed reply never advances it. When the
// stream fails the watermark earned so far is returned with the error.
func (d *Driver) ProcessNew(ctx context.Context, stream Stream, watermark float64) (float64, error) {
	d.summary = Summary{}
	newest := watermark
	logger.Poll("%s START %s", d.Label, formatTime(watermark))

	for item, err := range stream {
		if err != nil {
			logger.Error("%s stream failed: %v", d.Label, err)
			return newest, err
		}
		if err := ctx.Err(); err != nil {
			return newest, err
		}
		if item.Created <= watermark {
			logger.Poll("%s END %s (reached watermark %s)", d.Label, formatTime(item.Created), formatTime(watermark))
			d.logSummary()
			return newest, nil
		}
		d.summary.Seen++

		if item.Author == d.BotName {
			d.summary.Skipped++
			logger.Debug("%s SKIP %s (own item)", d.Label, item.ID)
			continue
		}

		text := d.Renderer.Message(item.Body, d.Resolver)
		if text == "" {
			d.summary.Ignored++
			logger.Debug("%s IGNORE %s %s", d.Label, item.ID, formatTime(item.Created))
			continue
		}

		if err := d.Sender.Reply(ctx, item.ID, text+d.Footer); err != nil {
			d.summary.Failed++
			logger.Error("%s REPLY FAILED %s: %v", d.Label, item.ID, err)
			if ctx.Err() != nil {
				return newest, ctx.Err()
			}
			continue
		}

		d.summary.Replied++
		logger.Poll("%s REPLY %s %s", d.Label, item.ID, formatTime(item.Created))
		newest = max(newest, item.Created)
	}

	logger.Poll("%s END (no items left)", d.Label)
	d.logSummary()
	return newest, nil
}

func (d *Driver) logSummary() {
	s := d.summary
	logger.Info("%s: %d new, %d replied, %d ignored, %d own, %d failed", d.Label, s.Seen, s.Replied, s.Ignored, s.Skipped, s.Failed)
}

func formatTime(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}
