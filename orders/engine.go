// Package orders drives the order lifecycle: applying status transitions,
// assigning couriers and keeping the customer-facing and staff-facing
// messages in sync with the persisted order record. Persistence is the
// durability boundary; message delivery is best-effort.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"edabot/lifecycle"
	"edabot/models"
	"edabot/tg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrNotFound — the order id does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrIllegalTransition — the requested status is not a legal edge
	// from the order's current status.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrEmptyCourier — courier names must be non-empty after trimming.
	ErrEmptyCourier = errors.New("courier name is empty")
)

// Store is the subset of the persistence layer the engine mutates.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetCourier(ctx context.Context, id int64, courier string) error
	SetUserMessageRef(ctx context.Context, id int64, messageID int) error
	SetGroupMessageRef(ctx context.Context, id int64, messageID int) error
}

// Channel is the messaging transport. Send returns the new message id so
// it can be persisted as an edit reference.
type Channel interface {
	Send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error)
	SafeEdit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup, orderID int64, audience string) tg.EditResult
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// Publisher pushes order events to the live staff feed.
type Publisher interface {
	Publish(ctx context.Context, ev models.OrderEvent)
}

// Engine applies lifecycle operations. Events and Receipt are optional.
type Engine struct {
	Store       Store
	Channel     Channel
	GroupChatID int64
	Events      Publisher
	Receipt     func(*models.Order) ([]byte, error)
}

func (e *Engine) emit(ctx context.Context, ev models.OrderEvent) {
	if e.Events != nil {
		e.Events.Publish(ctx, ev)
	}
}

// pushStaff re-renders the staff card and edits it in place. When the
// referenced message is gone, a fresh card replaces it; an unchanged-body
// edit counts as success.
func (e *Engine) pushStaff(ctx context.Context, o *models.Order) {
	if e.GroupChatID == 0 {
		return
	}
	text := lifecycle.RenderStaff(o)
	kb := tg.AdminOrderKB(o.ID, lifecycle.Status(o.Status), o.Courier != "")

	if o.GroupMessageID != 0 {
		res := e.Channel.SafeEdit(e.GroupChatID, o.GroupMessageID, text, kb, o.ID, "staff")
		if res != tg.EditMissing {
			return
		}
	}
	msgID, err := e.Channel.Send(e.GroupChatID, text, kb)
	if err != nil {
		log.Printf("Send staff card for order %d failed: %v", o.ID, err)
		return
	}
	if err := e.Store.SetGroupMessageRef(ctx, o.ID, msgID); err != nil {
		log.Printf("Persist staff message ref for order %d failed: %v", o.ID, err)
	}
}

// pushCustomer re-renders the customer message and edits it in place,
// sending a fresh message (and persisting its id) when no reference
// exists or the referenced message is gone. Failures never propagate.
func (e *Engine) pushCustomer(ctx context.Context, o *models.Order) {
	text := lifecycle.RenderCustomer(o)
	var kb *tgbotapi.InlineKeyboardMarkup
	if lifecycle.Terminal(lifecycle.Status(o.Status)) {
		kb = tg.PostOrderKB(o.ID)
	}

	if o.UserMessageID != 0 {
		res := e.Channel.SafeEdit(o.UserID, o.UserMessageID, text, kb, o.ID, "customer")
		if res != tg.EditMissing {
			return
		}
	}
	msgID, err := e.Channel.Send(o.UserID, text, kb)
	if err != nil {
		log.Printf("Send customer message for order %d failed: %v", o.ID, err)
		return
	}
	if err := e.Store.SetUserMessageRef(ctx, o.ID, msgID); err != nil {
		log.Printf("Persist customer message ref for order %d failed: %v", o.ID, err)
	}
}

// closing sends the one-shot supplementary message that follows a
// transition: thank-you or cancellation for terminal statuses, a plain
// status ping otherwise. Best-effort.
func (e *Engine) closing(o *models.Order) {
	var err error
	switch lifecycle.Status(o.Status) {
	case lifecycle.StatusDelivered:
		_, err = e.Channel.Send(o.UserID, lifecycle.ThanksText, tg.PostOrderKB(o.ID))
		e.sendReceipt(o)
	case lifecycle.StatusCanceled:
		_, err = e.Channel.Send(o.UserID, lifecycle.CanceledText, tg.PostOrderKB(o.ID))
	default:
		_, err = e.Channel.Send(o.UserID, lifecycle.StatusPing(lifecycle.Status(o.Status)), nil)
	}
	if err != nil {
		log.Printf("Closing notification for order %d failed: %v", o.ID, err)
	}
}

func (e *Engine) sendReceipt(o *models.Order) {
	if e.Receipt == nil {
		return
	}
	data, err := e.Receipt(o)
	if err != nil {
		log.Printf("Build receipt for order %d failed: %v", o.ID, err)
		return
	}
	name := fmt.Sprintf("order-%d.pdf", o.ID)
	if err := e.Channel.SendDocument(o.UserID, name, data, "Чек по вашему заказу"); err != nil {
		log.Printf("Send receipt for order %d failed: %v", o.ID, err)
	}
}

// ApplyTransition moves an order to a new status and propagates the
// change to both audiences. It reports success once the status is
// persisted, regardless of notification outcomes.
func (e *Engine) ApplyTransition(ctx context.Context, orderID int64, next lifecycle.Status) error {
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}
	if !lifecycle.CanTransition(lifecycle.Status(o.Status), next) {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, o.Status, next)
	}

	if err := e.Store.SetStatus(ctx, orderID, string(next)); err != nil {
		return err
	}
	o, err = e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}

	e.pushStaff(ctx, o)
	e.pushCustomer(ctx, o)
	e.closing(o)
	e.emit(ctx, models.OrderEvent{
		Type:    models.EventStatusChanged,
		OrderID: o.ID,
		Status:  o.Status,
		At:      o.UpdatedAt,
	})
	return nil
}

// AssignCourier persists the courier and re-renders both audience
// messages. Assignment does not change the order status.
func (e *Engine) AssignCourier(ctx context.Context, orderID int64, name string) error {
	if name == "" {
		return ErrEmptyCourier
	}
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}

	if err := e.Store.SetCourier(ctx, orderID, name); err != nil {
		return err
	}
	o, err = e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}

	e.pushStaff(ctx, o)
	e.pushCustomer(ctx, o)
	if _, err := e.Channel.Send(o.UserID, fmt.Sprintf("Назначен курьер: %s 🚚", name), nil); err != nil {
		log.Printf("Courier ping for order %d failed: %v", o.ID, err)
	}
	e.emit(ctx, models.OrderEvent{
		Type:    models.EventCourierSet,
		OrderID: o.ID,
		Status:  o.Status,
		Courier: o.Courier,
		At:      o.UpdatedAt,
	})
	return nil
}

// RefreshStaffCard re-renders the staff card in place ("🔁 Обновить").
func (e *Engine) RefreshStaffCard(ctx context.Context, orderID int64) error {
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}
	e.pushStaff(ctx, o)
	return nil
}

// AnnounceNew dispatches the initial notifications for a freshly created
// order: the customer message plus the milestone legend, and the staff
// card with the full action menu when a broadcast destination is
// configured. Message-reference persistence failures are logged only.
func (e *Engine) AnnounceNew(ctx context.Context, o *models.Order) {
	msgID, err := e.Channel.Send(o.UserID, lifecycle.RenderCustomer(o), nil)
	if err != nil {
		log.Printf("Send initial customer message for order %d failed: %v", o.ID, err)
	} else {
		o.UserMessageID = msgID
		if err := e.Store.SetUserMessageRef(ctx, o.ID, msgID); err != nil {
			log.Printf("Persist customer message ref for order %d failed: %v", o.ID, err)
		}
	}

	if _, err := e.Channel.Send(o.UserID, lifecycle.Legend(), nil); err != nil {
		log.Printf("Send legend for order %d failed: %v", o.ID, err)
	}

	if e.GroupChatID != 0 {
		kb := tg.AdminOrderKB(o.ID, lifecycle.StatusNew, false)
		msgID, err := e.Channel.Send(e.GroupChatID, lifecycle.RenderStaff(o), kb)
		if err != nil {
			log.Printf("Send staff card for order %d failed: %v", o.ID, err)
		} else {
			o.GroupMessageID = msgID
			if err := e.Store.SetGroupMessageRef(ctx, o.ID, msgID); err != nil {
				log.Printf("Persist staff message ref for order %d failed: %v", o.ID, err)
			}
		}
	}

	e.emit(ctx, models.OrderEvent{
		Type:    models.EventOrderCreated,
		OrderID: o.ID,
		Status:  o.Status,
		Total:   o.Total,
		At:      o.CreatedAt,
	})
}
