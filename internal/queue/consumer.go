package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// LogConsumer appends every reservation.ended and announcement.played
// event to <Dir>/announcements.log, one line per event.
type LogConsumer struct {
	URL string
	Dir string

	mu sync.Mutex
}

func NewLogConsumer(url, dir string) *LogConsumer {
	if dir == "" {
		dir = "logs"
	}
	return &LogConsumer{URL: url, Dir: dir}
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff capped at 30s.
func (c *LogConsumer) Run(ctx context.Context) error {
	log := logrus.WithField("component", "announcement-log")
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			wait := b.NextBackOff()
			log.WithError(err).Warnf("dial broker failed; retrying in %s", wait)
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		b.Reset()

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleepCtx(ctx, b.NextBackOff()) {
			return ctx.Err()
		}
	}
}

func (c *LogConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logrus.WithError(err).Warn("set QoS failed")
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, q := range []string{ReservationEndedQueue, AnnouncementPlayedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.RoutingKey, d.Body); err != nil {
				logrus.WithError(err).WithField("queue", d.RoutingKey).Error("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle formats one event body from queue and appends it to the log.
func (c *LogConsumer) Handle(queue string, body []byte) error {
	line, err := formatLine(queue, body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, "announcements.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(queue string, body []byte) (string, error) {
	switch queue {
	case ReservationEndedQueue:
		var ev ReservationEndedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Reservation ended | reservation_id=%d | event_id=%s\n",
			ev.EndedAt, ev.ReservationID, ev.EventID), nil
	case AnnouncementPlayedQueue:
		var ev AnnouncementPlayedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		locales := make([]string, 0, len(ev.Texts))
		for loc := range ev.Texts {
			locales = append(locales, loc)
		}
		sort.Strings(locales)
		texts := make([]string, 0, len(locales))
		for _, loc := range locales {
			texts = append(texts, fmt.Sprintf("%s=%q", loc, ev.Texts[loc]))
		}
		return fmt.Sprintf("[%s] Pickup announced | reservation_id=%d | name=%q | %s | event_id=%s\n",
			ev.PlayedAt, ev.ReservationID, ev.CustomerName, strings.Join(texts, " | "), ev.EventID), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
