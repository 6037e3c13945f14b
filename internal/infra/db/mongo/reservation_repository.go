package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

// ReservationRepository stores reservations with ranges as unix milliseconds
// so overlap queries are plain numeric comparisons.
type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("reservations")}
}

// EnsureIndexes creates the compound index the overlap query relies on.
func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.check_in", Value: 1}},
	})
	return err
}

func (r *ReservationRepository) FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) ([]reservation.Reservation, error) {
	return r.find(ctx, overlapFilter(propertyID, dr, statuses, excludeID))
}

func (r *ReservationRepository) FindAllActive(ctx context.Context, propertyID inventory.PropertyID) ([]reservation.Reservation, error) {
	filter := bson.M{"status": bson.M{"$in": statusStrings(reservation.ActiveStatuses())}}
	if propertyID != "" {
		filter["property_id"] = string(propertyID)
	}
	return r.find(ctx, filter)
}

func (r *ReservationRepository) Save(ctx context.Context, item reservation.Reservation) error {
	doc := newReservationDocument(item)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M) ([]reservation.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reservations: %w", err)
	}
	defer cur.Close(ctx)
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reservations: %w", err)
	}
	out := make([]reservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// overlapFilter selects reservations with checkIn < dr.CheckOut and checkOut > dr.CheckIn.
func overlapFilter(propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) bson.M {
	filter := bson.M{
		"property_id":     string(propertyID),
		"status":          bson.M{"$in": statusStrings(statuses)},
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	return filter
}

func statusStrings(statuses []reservation.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type reservationDocument struct {
	ID            string        `bson:"_id"`
	PropertyID    string        `bson:"property_id"`
	Range         rangeDocument `bson:"range"`
	RequiredUnits int           `bson:"required_units"`
	Status        string        `bson:"status"`
	CreatedAt     int64         `bson:"created_at"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newReservationDocument(r reservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:            string(r.ID),
		PropertyID:    string(r.PropertyID),
		Range:         rangeDocument{CheckIn: r.Range.CheckIn.UnixMilli(), CheckOut: r.Range.CheckOut.UnixMilli()},
		RequiredUnits: r.RequiredUnits,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt.UnixMilli(),
	}
}

func (d reservationDocument) toDomain() reservation.Reservation {
	return reservation.Reservation{
		ID:            reservation.ID(d.ID),
		PropertyID:    inventory.PropertyID(d.PropertyID),
		Range:         daterange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		RequiredUnits: d.RequiredUnits,
		Status:        reservation.Status(d.Status),
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var (
	_ reservation.Repository = (*ReservationRepository)(nil)
	_ reservation.Writer     = (*ReservationRepository)(nil)
)
