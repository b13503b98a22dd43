package db

import (
	"context"
	"fmt"
	"time"

	"edabot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoreError wraps any failed persistence operation with the name of the
// action that failed. Callers distinguish "not found" (a nil result) from
// "operation failed" (a *StoreError) without inspecting error text.
type StoreError struct {
	Action string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(action string, err error) error {
	return &StoreError{Action: action, Err: err}
}

// Store provides typed operations over the Mongo collections. It is opened
// once in main and passed down; there is no package-level connection.
type Store struct {
	client   *mongo.Client
	settings *mongo.Collection
	orders   *mongo.Collection
	clients  *mongo.Collection
	counters *mongo.Collection
}

// Open connects to Mongo and pings it before returning a ready Store.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	database := client.Database(dbName)
	return &Store{
		client:   client,
		settings: database.Collection("settings"),
		orders:   database.Collection("orders"),
		clients:  database.Collection("clients"),
		counters: database.Collection("counters"),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ----- Settings -----

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.settings.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		opts,
	)
	if err != nil {
		return storeErr("put setting", err)
	}
	return nil
}

// GetSetting returns the stored value, or "" with a nil error when the key
// has never been set.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var row models.Setting
	err := s.settings.FindOne(ctx, bson.M{"_id": key}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get setting", err)
	}
	return row.Value, nil
}

// ----- Orders -----

// nextOrderID atomically increments the order counter. IDs are monotonic
// and start at 1.
func (s *Store) nextOrderID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var row struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&row)
	if err != nil {
		return 0, err
	}
	return row.Seq, nil
}

// CreateOrder assigns the next order id, stamps timestamps and inserts the
// record. The passed order is updated in place.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) (int64, error) {
	id, err := s.nextOrderID(ctx)
	if err != nil {
		return 0, storeErr("create order", err)
	}
	now := time.Now().UTC()
	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
	if _, err := s.orders.InsertOne(ctx, o); err != nil {
		return 0, storeErr("create order", err)
	}
	return id, nil
}

// GetOrder returns (nil, nil) when no order has the given id.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return &o, nil
}

// GetLatestOrder returns the most recent order of one customer, or (nil, nil).
func (s *Store) GetLatestOrder(ctx context.Context, userID int64) (*models.Order, error) {
	opts := options.FindOne().SetSort(bson.M{"_id": -1})
	var o models.Order
	err := s.orders.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get last order", err)
	}
	return &o, nil
}

// ListOrders returns up to limit orders, newest first, optionally filtered
// by status. Used by the admin API.
func (s *Store) ListOrders(ctx context.Context, status string, limit int64) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"_id": -1}).SetLimit(limit)
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, storeErr("list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *Store) updateOrder(ctx context.Context, action string, id int64, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return storeErr(action, err)
	}
	if res.MatchedCount == 0 {
		return storeErr(action, mongo.ErrNoDocuments)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	return s.updateOrder(ctx, "update status", id, bson.M{"status": status})
}

func (s *Store) SetCourier(ctx context.Context, id int64, courier string) error {
	return s.updateOrder(ctx, "set courier", id, bson.M{"courier": courier})
}

func (s *Store) SetUserMessageRef(ctx context.Context, id int64, messageID int) error {
	return s.updateOrder(ctx, "set user message id", id, bson.M{"user_message_id": messageID})
}

func (s *Store) SetGroupMessageRef(ctx context.Context, id int64, messageID int) error {
	return s.updateOrder(ctx, "set group message id", id, bson.M{"group_message_id": messageID})
}

// ----- Clients -----

// UpsertClient overwrites the cached contact details wholesale.
func (s *Store) UpsertClient(ctx context.Context, c *models.Client) error {
	c.UpdatedAt = time.Now().UTC()
	opts := options.Update().SetUpsert(true)
	_, err := s.clients.UpdateOne(ctx,
		bson.M{"_id": c.UserID},
		bson.M{"$set": bson.M{
			"name":       c.Name,
			"phone":      c.Phone,
			"address":    c.Address,
			"updated_at": c.UpdatedAt,
		}},
		opts,
	)
	if err != nil {
		return storeErr("save client", err)
	}
	return nil
}

// GetClient returns (nil, nil) when the customer has no saved profile.
func (s *Store) GetClient(ctx context.Context, userID int64) (*models.Client, error) {
	var c models.Client
	err := s.clients.FindOne(ctx, bson.M{"_id": userID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get client", err)
	}
	return &c, nil
}
