package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/tax"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "check_in", Value: 1}}},
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *BookingRepository) ByToken(ctx context.Context, token string) (*domainbooking.Booking, error) {
	if token == "" {
		return nil, domainbooking.ErrBookingNotFound
	}
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *BookingRepository) ListByRoom(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"room_id":   string(roomID),
		"check_in":  bson.M{"$lte": dr.CheckOut},
		"check_out": bson.M{"$gte": dr.CheckIn},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) findOne(ctx context.Context, filter bson.M) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

type bookingDocument struct {
	ID           string                        `bson:"_id"`
	RoomID       string                        `bson:"room_id"`
	CheckIn      time.Time                     `bson:"check_in"`
	CheckOut     time.Time                     `bson:"check_out"`
	Adults       int                           `bson:"adults"`
	ChildrenAges []int                         `bson:"children_ages"`
	Guest        domainbooking.Guest           `bson:"guest"`
	Extras       []domainpricing.SelectedExtra `bson:"extras"`
	Price        domainpricing.Breakdown       `bson:"price"`
	Tax          tax.Breakdown                 `bson:"tax"`
	Totals       domainbooking.Totals          `bson:"totals"`
	Status       string                        `bson:"status"`
	Token        string                        `bson:"token"`
	Payment      domainbooking.Payment         `bson:"payment"`
	CreatedAt    time.Time                     `bson:"created_at"`
	UpdatedAt    time.Time                     `bson:"updated_at"`
	Version      int64                         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:           string(b.ID),
		RoomID:       string(b.RoomID),
		CheckIn:      b.Range.CheckIn,
		CheckOut:     b.Range.CheckOut,
		Adults:       b.Adults,
		ChildrenAges: b.ChildrenAges,
		Guest:        b.Guest,
		Extras:       b.Extras,
		Price:        b.Price,
		Tax:          b.Tax,
		Totals:       b.Totals,
		Status:       string(b.Status),
		Token:        b.Token,
		Payment:      b.Payment,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:           domainbooking.BookingID(d.ID),
		RoomID:       inventory.RoomID(d.RoomID),
		Range:        daterange.DateRange{CheckIn: daterange.Day(d.CheckIn), CheckOut: daterange.Day(d.CheckOut)},
		Adults:       d.Adults,
		ChildrenAges: d.ChildrenAges,
		Guest:        d.Guest,
		Extras:       d.Extras,
		Price:        d.Price,
		Tax:          d.Tax,
		Totals:       d.Totals,
		Status:       domainbooking.Status(d.Status),
		Token:        d.Token,
		Payment:      d.Payment,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		Version:      d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
