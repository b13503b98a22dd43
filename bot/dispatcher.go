// Package bot routes inbound Telegram updates: commands and free text to
// the conversation flow, callback payloads to the flow or the lifecycle
// engine. Payloads are parsed once here; business logic never sees raw
// callback strings.
package bot

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"edabot/config"
	"edabot/flow"
	"edabot/lifecycle"
	"edabot/models"
	"edabot/orders"
	"edabot/tg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SettingAdminGroup is the settings key the staff group binding is
// persisted under when /setgroup is used instead of the environment.
const SettingAdminGroup = "admin_group_id"

// Store is the persistence surface of the staff commands.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Dispatcher consumes the update stream and hands each event to the
// right handler. One update is handled to completion before the next.
type Dispatcher struct {
	Cfg    *config.Config
	TG     *tg.Client
	Flow   *flow.Controller
	Engine *orders.Engine
	Store  Store
}

// Run processes updates until the channel closes or ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			d.dispatch(ctx, update)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	}
}

func isGroup(chat *tgbotapi.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}

// ----- Messages -----

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		d.handleCommand(ctx, msg)
		return
	}

	if isGroup(msg.Chat) {
		if d.Cfg.IsAdmin(msg.From.ID) {
			d.Flow.HandleStaffText(ctx, msg.Chat.ID, msg.From.ID, msg.MessageID, msg.Text)
		}
		return
	}

	if msg.Chat.IsPrivate() {
		d.Flow.HandleText(ctx, msg.Chat.ID, msg.From.ID, fullName(msg.From), msg.From.UserName, msg.Text)
	}
}

func fullName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		if msg.Chat.IsPrivate() {
			d.Flow.Start(msg.Chat.ID, msg.From.ID)
		}
	case "help":
		d.Flow.Help(msg.Chat.ID)
	case "menu":
		d.Flow.Menu(msg.Chat.ID, msg.From.ID)
	case "cart":
		d.Flow.CartCmd(msg.Chat.ID, msg.From.ID)
	case "status":
		d.Flow.Status(ctx, msg.Chat.ID, msg.From.ID)
	case "find":
		d.handleFind(ctx, msg)
	case "setgroup":
		d.handleSetGroup(ctx, msg)
	}
}

// handleSetGroup binds the current group chat as the staff notification
// destination and persists the binding for the next restart.
func (d *Dispatcher) handleSetGroup(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg.Chat) {
		return
	}
	if !d.Cfg.IsAdmin(msg.From.ID) {
		d.sendPlain(msg.Chat.ID, "Недостаточно прав ❌")
		return
	}

	if err := d.Store.PutSetting(ctx, SettingAdminGroup, strconv.FormatInt(msg.Chat.ID, 10)); err != nil {
		log.Println("Persist staff group error:", err)
		d.sendPlain(msg.Chat.ID, "Не получилось сохранить группу, попробуйте позже")
		return
	}
	d.Engine.GroupChatID = msg.Chat.ID
	d.sendPlain(msg.Chat.ID, "Группа назначена для уведомлений о заказах ✅")
}

// handleFind looks an order up by id for staff: /find <номер>.
func (d *Dispatcher) handleFind(ctx context.Context, msg *tgbotapi.Message) {
	if !d.Cfg.IsAdmin(msg.From.ID) {
		d.sendPlain(msg.Chat.ID, "Недостаточно прав ❌")
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		d.sendPlain(msg.Chat.ID, "Использование: /find <номер заказа>")
		return
	}

	o, err := d.Store.GetOrder(ctx, id)
	if err != nil {
		log.Println("Find order error:", err)
		d.sendPlain(msg.Chat.ID, "Ошибка, попробуйте позже")
		return
	}
	if o == nil {
		d.sendPlain(msg.Chat.ID, "Заказ не найден ❌")
		return
	}

	kb := tg.AdminOrderKB(o.ID, lifecycle.Status(o.Status), o.Courier != "")
	if _, err := d.TG.Send(msg.Chat.ID, lifecycle.RenderStaff(o), kb); err != nil {
		log.Println("Send find result error:", err)
	}
}

func (d *Dispatcher) sendPlain(chatID int64, text string) {
	if _, err := d.TG.Send(chatID, text, nil); err != nil {
		log.Println("Send error:", err)
	}
}

// ----- Callbacks -----

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil {
		return
	}

	action, err := ParseAction(cq.Data)
	if err != nil {
		log.Println("Callback parse error:", err)
		d.TG.AnswerCallback(cq.ID, "Некорректный запрос", true)
		return
	}

	cb := flow.Callback{
		UserID:    cq.From.ID,
		ChatID:    cq.Message.Chat.ID,
		MessageID: cq.Message.MessageID,
		UserName:  fullName(cq.From),
		Username:  cq.From.UserName,
	}

	var n flow.Notice
	switch action.Kind {
	case ActNoop:
		// page indicator etc.
	case ActCategory:
		n = d.Flow.ShowCategory(cb, action.Category)
	case ActDish:
		n = d.Flow.AddDish(cb, action.Category, action.DishID, action.Page)
	case ActPage:
		n = d.Flow.Page(cb, action.Category, action.Page)
	case ActShowCart:
		n = d.Flow.ShowCart(cb)
	case ActClearCart:
		n = d.Flow.ClearCart(cb)
	case ActBackToCategories:
		n = d.Flow.BackToCategories(cb)
	case ActBackToStart:
		n = d.Flow.BackToStart(cb)
	case ActMakeOrder:
		n = d.Flow.MakeOrder(cb)
	case ActCheckout:
		n = d.Flow.Checkout(ctx, cb)
	case ActConfirmClient:
		n = d.Flow.ConfirmClient(cb)
	case ActEditClient:
		n = d.Flow.EditClient(cb)
	case ActComment:
		n = d.Flow.CommentTopic(ctx, cb, action.Topic)
	case ActNewOrder:
		n = d.Flow.NewOrder(cb)
	case ActReorder:
		n = d.Flow.Reorder(ctx, cb, action.OrderID)
	case ActOrderSet, ActOrderSetCourier, ActOrderRefresh:
		n = d.handleStaffAction(ctx, cq, action)
	}

	d.TG.AnswerCallback(cq.ID, n.Text, n.Alert)
}

// handleStaffAction gates the order:* callbacks to admins acting in the
// staff group and routes them to the lifecycle engine.
func (d *Dispatcher) handleStaffAction(ctx context.Context, cq *tgbotapi.CallbackQuery, action Action) flow.Notice {
	if !isGroup(cq.Message.Chat) {
		return flow.Notice{Text: "Команда доступна только в группе", Alert: true}
	}
	if !d.Cfg.IsAdmin(cq.From.ID) {
		return flow.Notice{Text: "Недостаточно прав", Alert: true}
	}

	switch action.Kind {
	case ActOrderSet:
		err := d.Engine.ApplyTransition(ctx, action.OrderID, action.Status)
		switch {
		case errors.Is(err, orders.ErrNotFound):
			return flow.Notice{Text: "Заказ не найден", Alert: true}
		case errors.Is(err, orders.ErrIllegalTransition):
			return flow.Notice{Text: "Недопустимый переход статуса", Alert: true}
		case err != nil:
			log.Println("Apply transition error:", err)
			return flow.Notice{Text: "Ошибка, попробуйте позже", Alert: true}
		}
		return flow.Notice{Text: "Статус обновлён"}

	case ActOrderSetCourier:
		d.Flow.StartCourierCapture(cq.From.ID, action.OrderID)
		if _, err := d.TG.Reply(cq.Message.Chat.ID, cq.Message.MessageID, "Введите имя/позывной курьера одним сообщением:"); err != nil {
			log.Println("Courier prompt error:", err)
		}
		return flow.Notice{}

	case ActOrderRefresh:
		err := d.Engine.RefreshStaffCard(ctx, action.OrderID)
		switch {
		case errors.Is(err, orders.ErrNotFound):
			return flow.Notice{Text: "Заказ не найден", Alert: true}
		case err != nil:
			log.Println("Refresh error:", err)
			return flow.Notice{Text: "Ошибка, попробуйте позже", Alert: true}
		}
		return flow.Notice{Text: "Обновлено"}
	}

	return flow.Notice{}
}
