package tg

import (
	"fmt"

	"edabot/catalog"
	"edabot/lifecycle"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func btn(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

// StartKB offers the single entry point into ordering.
func StartKB() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("Сделать заказ", "make_order")),
	)
	return &kb
}

// CategoriesKB lists the catalog categories, one per row.
func CategoriesKB() *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(catalog.CategoryKeys)+1)
	for _, key := range catalog.CategoryKeys {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			btn(catalog.Title(key), "cat:"+key),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn("⬅️ Назад", "back_to_start")))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// DishesKB lists one page of a category. Tapping a dish adds it to the
// cart immediately; the page index rides along in the payload so the
// keyboard can be re-rendered in place.
func DishesKB(categoryKey string, page int) *tgbotapi.InlineKeyboardMarkup {
	dishes, page, totalPages := catalog.Page(categoryKey, page)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dishes)+2)
	for _, d := range dishes {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn(
			fmt.Sprintf("%s — %d₽", d.Name, d.Price),
			fmt.Sprintf("dish:%s:%d:%d", categoryKey, d.ID, page),
		)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		btn("◀️", fmt.Sprintf("page:%s:%d", categoryKey, page-1)),
		btn(fmt.Sprintf("%d/%d", page+1, totalPages), "noop"),
		btn("▶️", fmt.Sprintf("page:%s:%d", categoryKey, page+1)),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		btn("🛒 Открыть корзину", "show_cart"),
		btn("⬅️ К категориям", "back_to_categories"),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// CartKB offers checkout, clearing and going back.
func CartKB() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("✅ Оформить", "checkout"),
			btn("🗑 Очистить", "clear_cart"),
		),
		tgbotapi.NewInlineKeyboardRow(btn("⬅️ К категориям", "back_to_categories")),
	)
	return &kb
}

// ClientConfirmKB asks a returning customer to confirm cached contact
// details or re-enter them.
func ClientConfirmKB() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("✅ Подтвердить", "confirm_client")),
		tgbotapi.NewInlineKeyboardRow(btn("✏ Ввести заново", "edit_client")),
	)
	return &kb
}

// CommentKB offers the optional comment topics before submission.
func CommentKB() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("🍲 К блюдам", "comment:food"),
			btn("🚚 К доставке", "comment:delivery"),
		),
		tgbotapi.NewInlineKeyboardRow(btn("➡️ Пропустить", "comment:skip")),
	)
	return &kb
}

// PostOrderKB follows a terminal status: start over or repeat the order.
func PostOrderKB(orderID int64) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("🛒 Новый заказ", "new_order")),
		tgbotapi.NewInlineKeyboardRow(btn("🔁 Повторить заказ", fmt.Sprintf("reorder:%d", orderID))),
	)
	return &kb
}

// AdminOrderKB renders the staff action menu for the current status. Only
// legal next statuses from the transition table are offered; the courier
// button appears while the order is with the kitchen/courier chain and no
// courier is assigned yet.
func AdminOrderKB(orderID int64, status lifecycle.Status, hasCourier bool) *tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, next := range lifecycle.Next[status] {
		if next == lifecycle.StatusCanceled {
			continue // rendered separately below
		}
		buttons = append(buttons, btn(
			lifecycle.StaffTitle(next),
			fmt.Sprintf("order:set:%d:%s", orderID, next),
		))
	}
	if (status == lifecycle.StatusReady || status == lifecycle.StatusHandoff || status == lifecycle.StatusOnWay) && !hasCourier {
		buttons = append(buttons, btn("🚚 Назначить курьера", fmt.Sprintf("order:setcourier:%d", orderID)))
	}
	if !lifecycle.Terminal(status) {
		buttons = append(buttons, btn("❌ Отменить", fmt.Sprintf("order:set:%d:%s", orderID, lifecycle.StatusCanceled)))
	}
	buttons = append(buttons, btn("🔁 Обновить", fmt.Sprintf("order:refresh:%d", orderID)))

	// two buttons per row
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[i:end]...))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
