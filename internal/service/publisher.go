// Package service publishes domain events to RabbitMQ.  Publishing is
// best effort: errors are logged and returned so callers may ignore them
// without interrupting the main flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/queue"
)

// Publisher dials the broker per message.  Event volume is a handful per
// hour, so no connection is held open.
type Publisher struct {
	URL string
}

func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishReservationEnded implements lifecycle.EndedPublisher.
func (p *Publisher) PublishReservationEnded(ctx context.Context, reservationID uint64, endedAt time.Time) error {
	return p.publish(ctx, queue.ReservationEndedQueue, queue.ReservationEndedEvent{
		EventID:       uuid.NewString(),
		ReservationID: reservationID,
		EndedAt:       endedAt.UTC().Format(time.RFC3339),
	})
}

// PublishAnnouncementPlayed records a completed pickup announcement.
func (p *Publisher) PublishAnnouncementPlayed(ctx context.Context, reservationID uint64, name string, texts map[string]string, playedAt time.Time) error {
	return p.publish(ctx, queue.AnnouncementPlayedQueue, queue.AnnouncementPlayedEvent{
		EventID:       uuid.NewString(),
		ReservationID: reservationID,
		CustomerName:  name,
		Texts:         texts,
		PlayedAt:      playedAt.UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, name string, event any) error {
	log := logrus.WithField("queue", name)

	body, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("marshal event failed")
		return err
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.WithError(err).Warn("dial broker failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("queue declare failed")
		return err
	}

	err = ch.PublishWithContext(ctx, "", name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.WithError(err).Warn("publish failed")
		return err
	}
	return nil
}
