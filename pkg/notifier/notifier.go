package notifier

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier only writes messages to the log. Used when no mail relay is
// configured.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLog(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{
		log: log.WithField("component", "notifier"),
	}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.log.Infof("notifying %s: %s: %s", to, subject, body)
	return nil
}

// Fanout delivers each message to every sender and joins their errors.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, to, subject, body string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, to, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
