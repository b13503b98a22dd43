package lifecycle

import (
	"fmt"
	"html"
	"strings"

	"edabot/models"
)

// milestones are the five fixed steps of the customer progress ladder.
var milestones = []struct {
	status Status
	title  string
}{
	{StatusPreparing, "🧑‍🍳 Готовим"},
	{StatusReady, "✅ Готов"},
	{StatusHandoff, "📦 Передаём курьеру"},
	{StatusOnWay, "🚚 В пути"},
	{StatusDelivered, "🏁 Доставлен"},
}

// ProgressText renders the milestone ladder. Steps at or before the
// current status are done (✅), later steps are pending (⏳). A canceled
// order marks every step not applicable (—).
func ProgressText(current Status) string {
	curIdx := flowIndex(current)
	lines := make([]string, 0, len(milestones))
	for _, step := range milestones {
		mark := "⏳"
		if current == StatusCanceled {
			mark = "—"
		} else if flowIndex(step.status) <= curIdx {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("• %s — %s", step.title, mark))
	}
	return strings.Join(lines, "\n")
}

// Legend is the one-time explanation of upcoming milestones sent right
// after checkout.
func Legend() string {
	lines := make([]string, 0, len(milestones)+1)
	lines = append(lines, "Как будет меняться статус заказа:")
	for _, step := range milestones {
		lines = append(lines, "• "+step.title)
	}
	return strings.Join(lines, "\n")
}

var commentTopics = map[string]string{
	"food":     "к блюдам",
	"delivery": "к доставке",
}

func commentLine(o *models.Order) string {
	if o.Comment == "" {
		return ""
	}
	topic := ""
	if t, ok := commentTopics[o.CommentTopic]; ok {
		topic = " (" + t + ")"
	}
	return fmt.Sprintf("\n<b>Комментарий%s:</b> %s", topic, html.EscapeString(o.Comment))
}

func itemsText(items []models.LineItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s ×%d — %d₽", html.EscapeString(it.Name), it.Qty, it.Sum()))
	}
	return strings.Join(lines, "\n")
}

// RenderCustomer produces the customer-facing order message: header,
// contact recap, optional courier and comment lines, itemization, total,
// status title with icon, and the progress ladder. All user-supplied text
// is escaped before being embedded into the HTML body.
func RenderCustomer(o *models.Order) string {
	status := Status(o.Status)
	courierLine := ""
	if o.Courier != "" {
		courierLine = "\n<b>Курьер:</b> " + html.EscapeString(o.Courier)
	}
	return fmt.Sprintf(
		"✅ <b>Заказ оформлен!</b>\n\n"+
			"<b>Имя:</b> %s\n"+
			"<b>Телефон:</b> %s\n"+
			"<b>Адрес:</b> %s%s%s\n\n"+
			"<b>Ваши блюда:</b>\n%s\n\n"+
			"<b>Итого:</b> %d₽\n\n"+
			"<b>Статус:</b> %s %s\n\n"+
			"%s",
		html.EscapeString(o.UserName),
		html.EscapeString(o.Phone),
		html.EscapeString(o.Address),
		courierLine,
		commentLine(o),
		itemsText(o.Items),
		o.Total,
		CustomerTitle(status),
		Icons[status],
		ProgressText(status),
	)
}

// RenderStaff produces the staff-facing order card: id, icon, lines,
// total, customer identity with a profile link, contact, address, and the
// current status.
func RenderStaff(o *models.Order) string {
	status := Status(o.Status)
	name := o.UserName
	if name == "" {
		name = "user"
	}
	userLink := fmt.Sprintf("<a href='tg://user?id=%d'>%s</a>", o.UserID, html.EscapeString(name))
	username := "-"
	if o.Username != "" {
		username = html.EscapeString(o.Username)
	}
	courierLine := ""
	if o.Courier != "" {
		courierLine = "\n<b>Курьер:</b> " + html.EscapeString(o.Courier)
	}
	return fmt.Sprintf(
		"%s <b>Заказ #%d</b>\n"+
			"%s\n\n"+
			"<b>Сумма:</b> %d₽\n"+
			"<b>Клиент:</b> %s @%s\n"+
			"<b>Телефон:</b> %s\n"+
			"<b>Адрес:</b> %s%s%s\n"+
			"<b>Статус:</b> %s",
		Icons[status],
		o.ID,
		itemsText(o.Items),
		o.Total,
		userLink,
		username,
		html.EscapeString(o.Phone),
		html.EscapeString(o.Address),
		courierLine,
		commentLine(o),
		StaffTitle(status),
	)
}

// StatusPing is the short supplementary message sent to the customer on a
// non-terminal transition.
func StatusPing(s Status) string {
	return fmt.Sprintf("%s %s", CustomerTitle(s), Icons[s])
}

// Closing messages for the two terminal statuses.
const (
	ThanksText   = "🙏 Спасибо за заказ! Мы очень ценим ваше доверие ❤️"
	CanceledText = "❌ Ваш заказ был отменён. Но вы всегда можете оформить новый заказ 🛒"
)
