package telegram

import tele "gopkg.in/telebot.v3"

func (t *Telegram) initButtons() {
	days.Inline(
		days.Row(todayBtn, tomorrowBtn))
}

var (
	days        = &tele.ReplyMarkup{}
	todayBtn    = days.Data("Today", "today")
	tomorrowBtn = days.Data("Tomorrow", "tomorrow")
)
