// Package flow sequences the per-user conversation: browsing the menu,
// collecting contact details, the optional comment, submission, and the
// staff-side courier-name capture. Session state is in-memory, keyed by
// user id, and never shared between users.
package flow

import (
	"context"
	"errors"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"

	"edabot/cart"
	"edabot/catalog"
	"edabot/lifecycle"
	"edabot/models"
	"edabot/orders"
	"edabot/tg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Step is the customer's position in the checkout conversation.
type Step int

const (
	StepBrowsing Step = iota
	StepName
	StepPhone
	StepAddress
	StepCommentTopic
	StepCommentText
)

// Session is one user's conversation state: the active step, the cart and
// the draft contact fields collected so far.
type Session struct {
	Step         Step
	Cart         *cart.Cart
	Name         string
	Phone        string
	Address      string
	CommentTopic string
	Comment      string
}

// staffSession tracks the courier-name capture sub-flow per staff actor.
type staffSession struct {
	OrderID int64
}

// Store is the persistence surface the flow controller needs.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) (int64, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetLatestOrder(ctx context.Context, userID int64) (*models.Order, error)
	GetClient(ctx context.Context, userID int64) (*models.Client, error)
	UpsertClient(ctx context.Context, c *models.Client) error
}

// ProfileCache is the optional read-through cache in front of GetClient.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID int64) *models.Client
	SetProfile(ctx context.Context, c *models.Client)
	DelProfile(ctx context.Context, userID int64)
}

// Engine is the lifecycle surface the flow drives: announcing freshly
// created orders and applying captured courier names.
type Engine interface {
	AnnounceNew(ctx context.Context, o *models.Order)
	AssignCourier(ctx context.Context, orderID int64, name string) error
}

// Controller owns all conversation sessions and drives the checkout.
type Controller struct {
	Store   Store
	Cache   ProfileCache
	Channel orders.Channel
	Engine  Engine

	mu       sync.Mutex
	sessions map[int64]*Session
	staff    map[int64]*staffSession
}

// NewController returns a Controller with empty session tables.
func NewController(store Store, cache ProfileCache, ch orders.Channel, eng Engine) *Controller {
	return &Controller{
		Store:    store,
		Cache:    cache,
		Channel:  ch,
		Engine:   eng,
		sessions: make(map[int64]*Session),
		staff:    make(map[int64]*staffSession),
	}
}

// session returns the user's session, creating a fresh browsing session
// on first interaction.
func (c *Controller) session(userID int64) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		s = &Session{Step: StepBrowsing, Cart: cart.New()}
		c.sessions[userID] = s
	}
	return s
}

// reset replaces the user's session with a fresh browsing one (empty cart).
func (c *Controller) reset(userID int64) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Session{Step: StepBrowsing, Cart: cart.New()}
	c.sessions[userID] = s
	return s
}

// Callback carries the identity and message context of one interactive
// callback event.
type Callback struct {
	UserID    int64
	ChatID    int64
	MessageID int
	UserName  string
	Username  string
}

// Notice is what the dispatcher shows as the callback acknowledgement.
type Notice struct {
	Text  string
	Alert bool
}

func notice(text string) Notice { return Notice{Text: text} }
func alert(text string) Notice  { return Notice{Text: text, Alert: true} }
func silent() Notice            { return Notice{} }

const (
	greetingText   = "Привет! Добро пожаловать в наш бот.\nНажмите кнопку ниже, чтобы начать заказ:"
	startText      = "Нажмите кнопку ниже, чтобы начать заказ:"
	categoriesText = "Выберите категорию:"
	helpText       = "📖 Доступные команды:\n" +
		"/menu – открыть меню\n" +
		"/cart – показать корзину\n" +
		"/status – статус последнего заказа\n" +
		"/help – помощь"
	retryLaterText = "Не получилось оформить заказ. Попробуйте ещё раз чуть позже 🙏"
)

// ----- Commands -----

// Start handles /start: fresh session, greeting with the entry keyboard.
func (c *Controller) Start(chatID, userID int64) {
	c.reset(userID)
	c.send(chatID, greetingText, tg.StartKB())
}

// Help handles /help.
func (c *Controller) Help(chatID int64) {
	c.send(chatID, helpText, nil)
}

// Menu handles /menu: fresh session, category list.
func (c *Controller) Menu(chatID, userID int64) {
	c.reset(userID)
	c.send(chatID, categoriesText, tg.CategoriesKB())
}

// CartCmd handles /cart.
func (c *Controller) CartCmd(chatID, userID int64) {
	s := c.session(userID)
	c.send(chatID, "🧺 <b>Корзина</b>\n\n"+s.Cart.Format(html.EscapeString), tg.CartKB())
}

// Status handles /status: render the user's most recent order.
func (c *Controller) Status(ctx context.Context, chatID, userID int64) {
	o, err := c.Store.GetLatestOrder(ctx, userID)
	if err != nil {
		log.Println("Get last order error:", err)
		c.send(chatID, retryLaterText, nil)
		return
	}
	if o == nil {
		c.send(chatID, "У вас ещё нет заказов ❌", nil)
		return
	}
	c.send(chatID, lifecycle.RenderCustomer(o), nil)
}

func (c *Controller) send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if _, err := c.Channel.Send(chatID, text, kb); err != nil {
		log.Println("Send error:", err)
	}
}

// ----- Browsing callbacks -----

// MakeOrder handles the entry button: fresh session, category list.
func (c *Controller) MakeOrder(cb Callback) Notice {
	c.reset(cb.UserID)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, categoriesText, tg.CategoriesKB(), 0, "customer")
	return silent()
}

// BackToStart clears the session and returns to the entry message.
func (c *Controller) BackToStart(cb Callback) Notice {
	c.reset(cb.UserID)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, startText, tg.StartKB(), 0, "customer")
	return silent()
}

// BackToCategories re-renders the category list in place.
func (c *Controller) BackToCategories(cb Callback) Notice {
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, categoriesText, tg.CategoriesKB(), 0, "customer")
	return silent()
}

// listHeader renders the dish-list header with a live cart summary.
func listHeader(s *Session, categoryKey string) string {
	return "Категория: <b>" + html.EscapeString(catalog.Title(categoryKey)) + "</b>\n" +
		"В корзине: " + strconv.Itoa(s.Cart.Quantity()) + " поз. • " + strconv.FormatInt(s.Cart.Total(), 10) + "₽\n" +
		"<b>Вы выбрали:</b>\n" + s.Cart.Format(html.EscapeString) + "\n\n" +
		"Выберите блюдо:"
}

// ShowCategory renders the dish list for a category.
func (c *Controller) ShowCategory(cb Callback, categoryKey string) Notice {
	s := c.session(cb.UserID)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, listHeader(s, categoryKey), tg.DishesKB(categoryKey, 0), 0, "customer")
	return silent()
}

// Page flips the dish list to another page of the same category.
func (c *Controller) Page(cb Callback, categoryKey string, page int) Notice {
	s := c.session(cb.UserID)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, listHeader(s, categoryKey), tg.DishesKB(categoryKey, page), 0, "customer")
	return silent()
}

// AddDish puts one unit of a dish into the cart and refreshes the list.
func (c *Controller) AddDish(cb Callback, categoryKey string, dishID, page int) Notice {
	dish, ok := catalog.Lookup(categoryKey, dishID)
	if !ok {
		return alert("Блюдо не найдено")
	}
	s := c.session(cb.UserID)
	s.Cart.Add(dish.Name, dish.Price)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, listHeader(s, categoryKey), tg.DishesKB(categoryKey, page), 0, "customer")
	return notice(dish.Name + " добавлено ✅")
}

// ShowCart renders the cart view in place.
func (c *Controller) ShowCart(cb Callback) Notice {
	s := c.session(cb.UserID)
	text := "🧺 <b>Корзина</b>\n\n" + s.Cart.Format(html.EscapeString)
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, text, tg.CartKB(), 0, "customer")
	return silent()
}

// ClearCart empties the cart and returns to the categories.
func (c *Controller) ClearCart(cb Callback) Notice {
	s := c.session(cb.UserID)
	s.Cart.Clear()
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "🧺 Корзина очищена.\n\n"+categoriesText, tg.CategoriesKB(), 0, "customer")
	return notice("Корзина очищена")
}

// ----- Checkout -----

// Checkout starts contact collection. A returning customer with a cached
// profile is offered the stored details first.
func (c *Controller) Checkout(ctx context.Context, cb Callback) Notice {
	s := c.session(cb.UserID)
	if s.Cart.Len() == 0 {
		return alert("Корзина пуста ❌")
	}

	client := c.lookupProfile(ctx, cb.UserID)
	if client != nil {
		s.Name, s.Phone, s.Address = client.Name, client.Phone, client.Address
		text := "Мы нашли ваши данные:\n" +
			"👤 Имя: " + html.EscapeString(client.Name) + "\n" +
			"📞 Телефон: " + html.EscapeString(client.Phone) + "\n" +
			"📍 Адрес: " + html.EscapeString(client.Address) + "\n\n" +
			"Подтверждаете или хотите ввести заново?"
		c.Channel.SafeEdit(cb.ChatID, cb.MessageID, text, tg.ClientConfirmKB(), 0, "customer")
		return silent()
	}

	s.Step = StepName
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "Введите ваше имя:", nil, 0, "customer")
	return silent()
}

func (c *Controller) lookupProfile(ctx context.Context, userID int64) *models.Client {
	if c.Cache != nil {
		if client := c.Cache.GetProfile(ctx, userID); client != nil {
			return client
		}
	}
	client, err := c.Store.GetClient(ctx, userID)
	if err != nil {
		log.Println("Get client error:", err)
		return nil
	}
	if client != nil && c.Cache != nil {
		c.Cache.SetProfile(ctx, client)
	}
	return client
}

// ConfirmClient accepts the cached contact details and moves on to the
// optional comment.
func (c *Controller) ConfirmClient(cb Callback) Notice {
	s := c.session(cb.UserID)
	if s.Name == "" || s.Address == "" {
		s.Step = StepName
		c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "Введите ваше имя:", nil, 0, "customer")
		return silent()
	}
	s.Step = StepCommentTopic
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "Хотите оставить комментарий к заказу?", tg.CommentKB(), 0, "customer")
	return silent()
}

// EditClient discards the cached details and collects them anew.
func (c *Controller) EditClient(cb Callback) Notice {
	s := c.session(cb.UserID)
	s.Name, s.Phone, s.Address = "", "", ""
	s.Step = StepName
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "Введите ваше имя:", nil, 0, "customer")
	return silent()
}

// CommentTopic records the chosen topic (or skips) and either collects
// the comment text or submits right away.
func (c *Controller) CommentTopic(ctx context.Context, cb Callback, topic string) Notice {
	s := c.session(cb.UserID)
	if s.Step != StepCommentTopic {
		return silent()
	}
	if topic == "skip" {
		c.submit(ctx, cb.ChatID, cb.UserID, cb.UserName, cb.Username, s)
		return silent()
	}
	s.CommentTopic = topic
	s.Step = StepCommentText
	c.Channel.SafeEdit(cb.ChatID, cb.MessageID, "Напишите комментарий одним сообщением:", nil, 0, "customer")
	return silent()
}

// NewOrder starts a fresh order after delivery/cancellation.
func (c *Controller) NewOrder(cb Callback) Notice {
	c.reset(cb.UserID)
	c.send(cb.ChatID, categoriesText, tg.CategoriesKB())
	return notice("Новый заказ")
}

// Reorder restores the cart from a past order after an ownership check.
func (c *Controller) Reorder(ctx context.Context, cb Callback, orderID int64) Notice {
	o, err := c.Store.GetOrder(ctx, orderID)
	if err != nil {
		log.Println("Reorder get order error:", err)
		return alert("Ошибка, попробуйте позже")
	}
	if o == nil {
		return alert("Заказ не найден")
	}
	if o.UserID != cb.UserID {
		return alert("Это не ваш заказ")
	}

	s := c.reset(cb.UserID)
	s.Cart = cart.Restore(o.Items)
	text := "🔁 Корзина восстановлена из заказа #" + strconv.FormatInt(orderID, 10) + "\n\n" + s.Cart.Format(html.EscapeString)
	c.send(cb.ChatID, text, tg.CartKB())
	return notice("Корзина восстановлена")
}

// ----- Free-text input -----

// HandleText processes a private free-text message according to the
// active step. Empty input (after trimming) is rejected with a re-prompt;
// the phone is deliberately accepted as free-form text to tolerate varied
// international formats.
func (c *Controller) HandleText(ctx context.Context, chatID, userID int64, userName, username, text string) {
	s := c.session(userID)
	text = strings.TrimSpace(text)

	switch s.Step {
	case StepName:
		if text == "" {
			c.send(chatID, "Имя не может быть пустым. Введите снова:", nil)
			return
		}
		s.Name = text
		s.Step = StepPhone
		c.send(chatID, "Введите номер телефона:", nil)

	case StepPhone:
		if text == "" {
			c.send(chatID, "Введите номер телефона:", nil)
			return
		}
		s.Phone = text
		s.Step = StepAddress
		c.send(chatID, "Введите адрес доставки:", nil)

	case StepAddress:
		if text == "" {
			c.send(chatID, "Адрес не может быть пустым. Введите снова:", nil)
			return
		}
		s.Address = text
		s.Step = StepCommentTopic
		c.send(chatID, "Хотите оставить комментарий к заказу?", tg.CommentKB())

	case StepCommentText:
		if text == "" {
			c.send(chatID, "Комментарий не может быть пустым. Напишите снова:", nil)
			return
		}
		s.Comment = text
		c.submit(ctx, chatID, userID, userName, username, s)

	default:
		// Browsing: free text outside a collection step is ignored.
	}
}

// submit persists the order, refreshes the client profile cache and hands
// the record to the engine for notification dispatch. Any persistence
// failure aborts with a retry-later message and clears the session.
func (c *Controller) submit(ctx context.Context, chatID, userID int64, userName, username string, s *Session) {
	name := s.Name
	if name == "" {
		name = userName
	}
	o := &models.Order{
		UserID:       userID,
		UserName:     name,
		Username:     username,
		Phone:        s.Phone,
		Address:      s.Address,
		Items:        s.Cart.Items(),
		Total:        s.Cart.Total(),
		Status:       string(lifecycle.StatusNew),
		Comment:      s.Comment,
		CommentTopic: s.CommentTopic,
	}

	if _, err := c.Store.CreateOrder(ctx, o); err != nil {
		log.Println("Create order failed:", err)
		c.send(chatID, retryLaterText, nil)
		c.reset(userID)
		return
	}

	client := &models.Client{UserID: userID, Name: name, Phone: s.Phone, Address: s.Address}
	if err := c.Store.UpsertClient(ctx, client); err != nil {
		log.Println("Save client failed:", err)
	} else if c.Cache != nil {
		c.Cache.DelProfile(ctx, userID)
		c.Cache.SetProfile(ctx, client)
	}

	c.Engine.AnnounceNew(ctx, o)
	c.reset(userID)
}

// ----- Staff courier sub-flow -----

// StartCourierCapture arms the courier-name capture for one staff actor.
func (c *Controller) StartCourierCapture(staffID, orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff[staffID] = &staffSession{OrderID: orderID}
}

// HandleStaffText consumes one group-chat message as the courier name if
// a capture is armed for the sender. Returns false when the message was
// not part of the sub-flow.
func (c *Controller) HandleStaffText(ctx context.Context, chatID, staffID int64, messageID int, text string) bool {
	c.mu.Lock()
	ss, ok := c.staff[staffID]
	c.mu.Unlock()
	if !ok {
		return false
	}

	courier := strings.TrimSpace(text)
	if courier == "" {
		c.reply(chatID, messageID, "Имя курьера не может быть пустым. Повторите:")
		return true
	}

	err := c.Engine.AssignCourier(ctx, ss.OrderID, courier)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.reply(chatID, messageID, "Заказ не найден.")
	case err != nil:
		log.Println("Assign courier failed:", err)
		c.reply(chatID, messageID, "Не получилось назначить курьера, попробуйте позже.")
	default:
		c.reply(chatID, messageID, "Курьер назначен: "+courier)
	}

	c.mu.Lock()
	delete(c.staff, staffID)
	c.mu.Unlock()
	return true
}

func (c *Controller) reply(chatID int64, messageID int, text string) {
	type replier interface {
		Reply(chatID int64, replyTo int, text string) (int, error)
	}
	if r, ok := c.Channel.(replier); ok {
		if _, err := r.Reply(chatID, messageID, text); err != nil {
			log.Println("Reply error:", err)
		}
		return
	}
	c.send(chatID, text, nil)
}
