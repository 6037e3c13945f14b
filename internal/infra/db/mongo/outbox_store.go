package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "roomrisk/internal/app/outbox"
	infraoutbox "roomrisk/internal/infra/outbox"
)

const (
	outboxStateNew     = "NEW"
	outboxStateClaimed = "CLAIMED"
	outboxStateSent    = "SENT"
	outboxStateFailed  = "FAILED"
)

// claimLease is how long a claimed record stays reserved before another
// worker may pick it up again.
const claimLease = time.Minute

// OutboxStore persists event records written by command handlers and hands
// them out to the relay worker.
type OutboxStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("outbox"), now: func() time.Time { return time.Now().UTC() }}
}

func (s *OutboxStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}},
	})
	return err
}

func (s *OutboxStore) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	_, err := s.col.InsertOne(ctx, newOutboxDocument(rec, s.now()))
	return err
}

// Flush is a no-op: every Add is already durable.
func (s *OutboxStore) Flush(context.Context) error { return nil }

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	now := s.now()
	filter := claimFilter(now)
	update := bson.M{
		"$set": bson.M{
			"state":           outboxStateClaimed,
			"claimed_by":      workerID,
			"next_attempt_at": now.Add(claimLease),
		},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetReturnDocument(options.After)
	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &infraoutbox.Pending{Record: doc.toRecord(), Attempts: doc.Attempts}, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": outboxStateSent, "sent_at": s.now(), "last_error": ""}})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"state": outboxStateFailed, "next_attempt_at": next, "last_error": errMsg},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}

// claimFilter matches new records, failed ones due for retry and claims whose
// lease ran out.
func claimFilter(now time.Time) bson.M {
	return bson.M{
		"state":           bson.M{"$in": []string{outboxStateNew, outboxStateFailed, outboxStateClaimed}},
		"next_attempt_at": bson.M{"$lte": now},
	}
}

type outboxDocument struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	Aggregate     string            `bson:"aggregate"`
	Payload       []byte            `bson:"payload"`
	Headers       map[string]string `bson:"headers,omitempty"`
	OccurredAt    time.Time         `bson:"occurred_at"`
	State         string            `bson:"state"`
	Attempts      int               `bson:"attempts"`
	NextAttemptAt time.Time         `bson:"next_attempt_at"`
	ClaimedBy     string            `bson:"claimed_by,omitempty"`
	LastError     string            `bson:"last_error,omitempty"`
}

func newOutboxDocument(rec appoutbox.EventRecord, now time.Time) outboxDocument {
	return outboxDocument{
		ID:            rec.ID,
		Name:          rec.Name,
		Aggregate:     rec.Aggregate,
		Payload:       rec.Payload,
		Headers:       rec.Headers,
		OccurredAt:    rec.OccurredAt,
		State:         outboxStateNew,
		NextAttemptAt: now,
	}
}

func (d outboxDocument) toRecord() appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         d.ID,
		Name:       d.Name,
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt,
		Aggregate:  d.Aggregate,
		Headers:    d.Headers,
	}
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
