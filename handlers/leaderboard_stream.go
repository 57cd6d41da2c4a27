package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waitlist-referral-system/models"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const leaderboardStreamInterval = 5 * time.Second

// leaderboardStream pushes the top list as a server-sent event on connect
// and again whenever the cached list changes. Every tick writes at least a
// keepalive, so a disconnected client ends the loop on the next tick.
func leaderboardStream(d *Deps) fiber.Handler {
	log := logrus.WithField("component", "leaderboard_stream")
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", services.LeaderboardDefaultLimit)
		done := c.Context().Done()

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ticker := time.NewTicker(leaderboardStreamInterval)
			defer ticker.Stop()

			feed := &leaderboardFeed{}
			push := func() bool {
				entries, err := d.Leaderboard.Top(context.Background(), limit)
				if err != nil {
					log.WithError(err).Error("leaderboard stream query failed")
				}
				return feed.send(w, entries, err) == nil
			}

			if writeKeepalive(w) != nil || !push() {
				return
			}

			for {
				select {
				case <-ticker.C:
					if !push() {
						// Client disconnected.
						return
					}
				case <-done:
					return
				}
			}
		})
		return nil
	}
}

// leaderboardFeed remembers the last payload sent on one stream.
type leaderboardFeed struct {
	last []byte
}

// send writes a leaderboard event when entries changed since the last
// event, and a keepalive comment otherwise.
func (f *leaderboardFeed) send(w *bufio.Writer, entries []models.LeaderboardEntry, queryErr error) error {
	if queryErr != nil {
		return writeKeepalive(w)
	}
	payload, err := json.Marshal(entries)
	if err != nil || bytes.Equal(payload, f.last) {
		return writeKeepalive(w)
	}
	f.last = payload
	return writeEvent(w, "leaderboard", payload)
}

func writeKeepalive(w *bufio.Writer) error {
	if _, err := w.WriteString(":\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
