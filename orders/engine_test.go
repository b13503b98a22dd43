package orders

import (
	"context"
	"errors"
	"strings"
	"testing"

	"edabot/lifecycle"
	"edabot/models"
	"edabot/tg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeStore struct {
	orders map[int64]*models.Order

	getErr    error
	setErr    error
	courierErr error

	statusSet  []string
	courierSet []string
	userRefs   []int
	groupRefs  []int
}

func newFakeStore(orders ...*models.Order) *fakeStore {
	s := &fakeStore{orders: make(map[int64]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id int64, status string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.statusSet = append(s.statusSet, status)
	s.orders[id].Status = status
	return nil
}

func (s *fakeStore) SetCourier(ctx context.Context, id int64, courier string) error {
	if s.courierErr != nil {
		return s.courierErr
	}
	s.courierSet = append(s.courierSet, courier)
	s.orders[id].Courier = courier
	return nil
}

func (s *fakeStore) SetUserMessageRef(ctx context.Context, id int64, messageID int) error {
	s.userRefs = append(s.userRefs, messageID)
	s.orders[id].UserMessageID = messageID
	return nil
}

func (s *fakeStore) SetGroupMessageRef(ctx context.Context, id int64, messageID int) error {
	s.groupRefs = append(s.groupRefs, messageID)
	s.orders[id].GroupMessageID = messageID
	return nil
}

type sentMsg struct {
	ChatID int64
	Text   string
	Markup *tgbotapi.InlineKeyboardMarkup
}

type editCall struct {
	ChatID    int64
	MessageID int
	Text      string
	Audience  string
}

type fakeChannel struct {
	sent    []sentMsg
	edits   []editCall
	docs    []string
	editRes tg.EditResult
	sendErr error
	nextID  int
}

func (c *fakeChannel) Send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if c.sendErr != nil {
		return 0, c.sendErr
	}
	c.sent = append(c.sent, sentMsg{ChatID: chatID, Text: text, Markup: markup})
	c.nextID++
	return 1000 + c.nextID, nil
}

func (c *fakeChannel) SafeEdit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup, orderID int64, audience string) tg.EditResult {
	c.edits = append(c.edits, editCall{ChatID: chatID, MessageID: messageID, Text: text, Audience: audience})
	return c.editRes
}

func (c *fakeChannel) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	c.docs = append(c.docs, filename)
	return nil
}

type fakePublisher struct {
	events []models.OrderEvent
}

func (p *fakePublisher) Publish(ctx context.Context, ev models.OrderEvent) {
	p.events = append(p.events, ev)
}

func order(id int64, status lifecycle.Status) *models.Order {
	return &models.Order{
		ID:             id,
		UserID:         42,
		UserName:       "Anna",
		Phone:          "+992900000000",
		Address:        "Main St 1",
		Items:          []models.LineItem{{Name: "Плов", Price: 240, Qty: 1}},
		Total:          240,
		Status:         string(status),
		UserMessageID:  11,
		GroupMessageID: 22,
	}
}

func newEngine(store Store, ch Channel, pub Publisher) *Engine {
	return &Engine{Store: store, Channel: ch, GroupChatID: -100, Events: pub}
}

func TestApplyTransitionHappyPath(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusNew))
	ch := &fakeChannel{}
	pub := &fakePublisher{}
	e := newEngine(store, ch, pub)

	if err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusPreparing); err != nil {
		t.Fatal(err)
	}

	if len(store.statusSet) != 1 || store.statusSet[0] != "preparing" {
		t.Fatalf("status not persisted: %v", store.statusSet)
	}
	// staff edit + customer edit
	if len(ch.edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(ch.edits))
	}
	if ch.edits[0].Audience != "staff" || ch.edits[1].Audience != "customer" {
		t.Fatalf("unexpected edit audiences: %+v", ch.edits)
	}
	// one status ping to the customer
	if len(ch.sent) != 1 || ch.sent[0].ChatID != 42 {
		t.Fatalf("expected 1 customer ping, got %+v", ch.sent)
	}
	if !strings.Contains(ch.sent[0].Text, "готовят") {
		t.Fatalf("unexpected ping text %q", ch.sent[0].Text)
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.EventStatusChanged {
		t.Fatalf("expected one status_changed event, got %+v", pub.events)
	}
}

func TestApplyTransitionRejectsIllegalEdge(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusNew))
	ch := &fakeChannel{}
	e := newEngine(store, ch, nil)

	err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusDelivered)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if len(store.statusSet) != 0 {
		t.Fatal("illegal transition must not persist anything")
	}
	if len(ch.edits) != 0 || len(ch.sent) != 0 {
		t.Fatal("illegal transition must not notify anyone")
	}
}

func TestApplyTransitionUnknownOrder(t *testing.T) {
	e := newEngine(newFakeStore(), &fakeChannel{}, nil)
	if err := e.ApplyTransition(context.Background(), 404, lifecycle.StatusPreparing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyTransitionSucceedsDespiteNotificationFailure(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusNew))
	ch := &fakeChannel{editRes: tg.EditFailed, sendErr: errors.New("telegram down")}
	e := newEngine(store, ch, nil)

	if err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusPreparing); err != nil {
		t.Fatalf("persisted transition must succeed regardless of notifications: %v", err)
	}
	if store.orders[1].Status != "preparing" {
		t.Fatal("status not persisted")
	}
}

func TestApplyTransitionResendsWhenMessageMissing(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusNew))
	ch := &fakeChannel{editRes: tg.EditMissing}
	e := newEngine(store, ch, nil)

	if err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusPreparing); err != nil {
		t.Fatal(err)
	}
	// staff card + customer message re-sent, plus the status ping
	if len(ch.sent) != 3 {
		t.Fatalf("expected 3 sends (staff, customer, ping), got %d", len(ch.sent))
	}
	if len(store.groupRefs) != 1 || len(store.userRefs) != 1 {
		t.Fatalf("fresh message ids not persisted: group=%v user=%v", store.groupRefs, store.userRefs)
	}
}

func TestDeliveredSendsThanksAndReceipt(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusOnWay))
	ch := &fakeChannel{}
	e := newEngine(store, ch, nil)
	e.Receipt = func(o *models.Order) ([]byte, error) { return []byte("%PDF-"), nil }

	if err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusDelivered); err != nil {
		t.Fatal(err)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "Спасибо за заказ") {
		t.Fatalf("expected thank-you message, got %+v", ch.sent)
	}
	if ch.sent[0].Markup == nil {
		t.Fatal("terminal message should carry the post-order keyboard")
	}
	if len(ch.docs) != 1 || ch.docs[0] != "order-1.pdf" {
		t.Fatalf("expected receipt document, got %v", ch.docs)
	}
}

func TestCanceledSendsCancellationNotice(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusPreparing))
	ch := &fakeChannel{}
	e := newEngine(store, ch, nil)

	if err := e.ApplyTransition(context.Background(), 1, lifecycle.StatusCanceled); err != nil {
		t.Fatal(err)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "отменён") {
		t.Fatalf("expected cancellation notice, got %+v", ch.sent)
	}
	if len(ch.docs) != 0 {
		t.Fatal("canceled orders get no receipt")
	}
}

func TestAssignCourier(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusReady))
	ch := &fakeChannel{}
	pub := &fakePublisher{}
	e := newEngine(store, ch, pub)

	if err := e.AssignCourier(context.Background(), 1, "Иван"); err != nil {
		t.Fatal(err)
	}
	if store.orders[1].Courier != "Иван" {
		t.Fatal("courier not persisted")
	}
	if store.orders[1].Status != string(lifecycle.StatusReady) {
		t.Fatal("assignment must not change the status")
	}
	if len(ch.edits) != 2 {
		t.Fatalf("expected both audience messages refreshed, got %d edits", len(ch.edits))
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0].Text, "Назначен курьер: Иван") {
		t.Fatalf("expected courier ping, got %+v", ch.sent)
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.EventCourierSet {
		t.Fatalf("expected courier_set event, got %+v", pub.events)
	}
}

func TestAssignCourierRejectsEmptyName(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusReady))
	e := newEngine(store, &fakeChannel{}, nil)
	if err := e.AssignCourier(context.Background(), 1, ""); !errors.Is(err, ErrEmptyCourier) {
		t.Fatalf("expected ErrEmptyCourier, got %v", err)
	}
	if len(store.courierSet) != 0 {
		t.Fatal("empty courier must not be persisted")
	}
}

func TestRefreshStaffCard(t *testing.T) {
	store := newFakeStore(order(1, lifecycle.StatusPreparing))
	ch := &fakeChannel{}
	e := newEngine(store, ch, nil)

	if err := e.RefreshStaffCard(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(ch.edits) != 1 || ch.edits[0].Audience != "staff" {
		t.Fatalf("expected one staff edit, got %+v", ch.edits)
	}
	if err := e.RefreshStaffCard(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnnounceNew(t *testing.T) {
	o := order(5, lifecycle.StatusNew)
	o.UserMessageID = 0
	o.GroupMessageID = 0
	store := newFakeStore(o)
	ch := &fakeChannel{}
	pub := &fakePublisher{}
	e := newEngine(store, ch, pub)

	e.AnnounceNew(context.Background(), o)

	// customer message, legend, staff card
	if len(ch.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(ch.sent))
	}
	if ch.sent[0].ChatID != 42 || !strings.Contains(ch.sent[0].Text, "Заказ оформлен") {
		t.Fatalf("unexpected customer message %+v", ch.sent[0])
	}
	if !strings.Contains(ch.sent[1].Text, "Как будет меняться статус") {
		t.Fatalf("unexpected legend %+v", ch.sent[1])
	}
	if ch.sent[2].ChatID != -100 || ch.sent[2].Markup == nil {
		t.Fatalf("staff card missing action keyboard %+v", ch.sent[2])
	}
	if len(store.userRefs) != 1 || len(store.groupRefs) != 1 {
		t.Fatal("message references not persisted")
	}
	if o.UserMessageID == 0 || o.GroupMessageID == 0 {
		t.Fatal("in-memory order not updated with message ids")
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.EventOrderCreated {
		t.Fatalf("expected order_created event, got %+v", pub.events)
	}
}

func TestAnnounceNewWithoutGroup(t *testing.T) {
	o := order(5, lifecycle.StatusNew)
	o.UserMessageID = 0
	o.GroupMessageID = 0
	store := newFakeStore(o)
	ch := &fakeChannel{}
	e := &Engine{Store: store, Channel: ch}

	e.AnnounceNew(context.Background(), o)
	// customer message + legend only
	if len(ch.sent) != 2 {
		t.Fatalf("expected 2 sends without a staff group, got %d", len(ch.sent))
	}
}
