package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/pershin-daniil/MeetingScheduler/pkg/models"
	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

type Telegram struct {
	log    *logrus.Entry
	bot    *tele.Bot
	app    App
	chatID int64
}

// Notifier mirrors every outgoing notification into the operator chat.
type Notifier struct {
	log  *logrus.Entry
	bot  *tele.Bot
	chat tele.ChatID
}

type App interface {
	ListByDate(ctx context.Context, date string) ([]models.Meeting, error)
	Location() *time.Location
}

func NewNotifier(log *logrus.Logger, bot *tele.Bot, chatID int64) *Notifier {
	return &Notifier{
		log:  log.WithField("component", "notifier"),
		bot:  bot,
		chat: tele.ChatID(chatID),
	}
}

// New serves the operator chat only; messages from other chats are ignored.
func New(log *logrus.Logger, bot *tele.Bot, app App, chatID int64) *Telegram {
	t := Telegram{
		log:    log.WithField("component", "telegram"),
		bot:    bot,
		app:    app,
		chatID: chatID,
	}
	t.initButtons()
	t.initHandlers()
	return &t
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot failed: %w", err)
	}
	return b, nil
}

func (n *Notifier) Send(_ context.Context, to, subject, body string) error {
	if _, err := n.bot.Send(n.chat, feedMessage(to, subject, body)); err != nil {
		return fmt.Errorf("tg send message failed: %w", err)
	}
	return nil
}

func (t *Telegram) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
	t.log.Infof("Starting telegram bot as %v", t.bot.Me.Username)
	t.bot.Start()
}

func feedMessage(to, subject, body string) string {
	return fmt.Sprintf("To: %s\n%s\n\n%s", to, subject, body)
}
