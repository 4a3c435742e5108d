package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	tele "gopkg.in/telebot.v3"
)

const cmdStart = "/start"
const cmdMeetings = "/meetings"

func (t *Telegram) initHandlers() {
	t.bot.Use(t.operatorOnly)
	t.bot.Handle(cmdStart, t.startHandler)
	t.bot.Handle(cmdMeetings, t.meetingsHandler)
	t.bot.Handle(&todayBtn, t.dayHandler(0))
	t.bot.Handle(&tomorrowBtn, t.dayHandler(1))
}

func (t *Telegram) operatorOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		if ctx.Chat() == nil || ctx.Chat().ID != t.chatID {
			t.log.Debugf("ignoring update from chat %v", ctx.Chat())
			return nil
		}
		return next(ctx)
	}
}

func (t *Telegram) startHandler(ctx tele.Context) error {
	return ctx.Send("Which day?", days)
}

func (t *Telegram) meetingsHandler(ctx tele.Context) error {
	date := time.Now().In(t.app.Location()).Format(models.DateLayout)
	if args := ctx.Args(); len(args) > 0 {
		date = args[0]
	}
	text, err := t.listing(date)
	if err != nil {
		return ctx.Send(err.Error())
	}
	return ctx.Send(text)
}

func (t *Telegram) dayHandler(offset int) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		date := time.Now().In(t.app.Location()).AddDate(0, 0, offset).Format(models.DateLayout)
		text, err := t.listing(date)
		if err != nil {
			t.log.Warnf("err listing %s: %v", date, err)
			text = err.Error()
		}
		if err = ctx.Respond(); err != nil {
			t.log.Debugf("err answering callback: %v", err)
		}
		return ctx.Edit(text, days)
	}
}

func (t *Telegram) listing(date string) (string, error) {
	meetings, err := t.app.ListByDate(context.Background(), date)
	if err != nil {
		return "", fmt.Errorf("can't list %s: %w", date, err)
	}
	return formatMeetings(date, meetings), nil
}

func formatMeetings(date string, meetings []models.Meeting) string {
	if len(meetings) == 0 {
		return fmt.Sprintf("No meetings on %s", date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Meetings on %s:\n", date)
	for _, m := range meetings {
		fmt.Fprintf(&b, "%s (%d min) - %s (Attendee: %s)\n", m.Time, m.Duration, m.Topic, m.Email)
	}
	return strings.TrimRight(b.String(), "\n")
}
