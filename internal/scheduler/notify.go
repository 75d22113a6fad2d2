package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/logging"
)

// AnnouncementPublisher records completed announcements elsewhere.
type AnnouncementPublisher interface {
	PublishAnnouncementPlayed(ctx context.Context, reservationID uint64, name string, texts map[string]string, playedAt time.Time) error
}

// LogNotifier is the operator acknowledgment: it logs every outcome and,
// when Publisher is set, forwards successes to the broker.
type LogNotifier struct {
	Publisher AnnouncementPublisher
}

func (n LogNotifier) Announced(ctx context.Context, a Announcement) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"reservation_id": a.ReservationID,
		"name":           a.Name,
		"at":             a.At.Format(time.RFC3339),
	})
	for loc, text := range a.Texts {
		log = log.WithField("text_"+loc, text)
	}
	log.Info("announced pickup")
	if n.Publisher != nil {
		if err := n.Publisher.PublishAnnouncementPlayed(ctx, a.ReservationID, a.Name, a.Texts, a.At); err != nil {
			log.WithError(err).Warn("publish announcement.played failed")
		}
	}
}

func (n LogNotifier) Failed(ctx context.Context, reservationID uint64, err error) {
	logging.FromContext(ctx).WithError(err).WithField("reservation_id", reservationID).Error("pickup announcement failed")
}
