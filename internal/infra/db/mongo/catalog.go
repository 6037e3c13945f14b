package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
)

// PropertyRepository reads property inventories from the "properties" collection.
type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

type propertyDocument struct {
	ID           string                     `bson:"_id"`
	PropertyType string                     `bson:"property_type"`
	Units        []inventory.UnitAllocation `bson:"units"`
	MaxGuests    int                        `bson:"max_guests"`
}

func (r *PropertyRepository) Inventory(ctx context.Context, id inventory.PropertyID) (inventory.Inventory, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return inventory.Inventory{}, inventory.ErrPropertyNotFound
		}
		return inventory.Inventory{}, fmt.Errorf("load property %s: %w", id, err)
	}
	return inventory.Inventory{
		PropertyID:   inventory.PropertyID(doc.ID),
		PropertyType: doc.PropertyType,
		Units:        doc.Units,
		MaxGuests:    doc.MaxGuests,
	}, nil
}

func (r *PropertyRepository) Save(ctx context.Context, inv inventory.Inventory) error {
	doc := propertyDocument{
		ID:           string(inv.PropertyID),
		PropertyType: inv.PropertyType,
		Units:        inv.Units,
		MaxGuests:    inv.MaxGuests,
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

// PolicyRepository resolves per-property overbooking policies stored in the
// "overbooking_policies" collection; properties without a document get the
// configured default.
type PolicyRepository struct {
	col      *mongo.Collection
	fallback overbooking.Policy
}

func NewPolicyRepository(db *mongo.Database, fallback overbooking.Policy) *PolicyRepository {
	return &PolicyRepository{col: db.Collection("overbooking_policies"), fallback: fallback}
}

type policyDocument struct {
	PropertyID         string `bson:"_id"`
	overbooking.Policy `bson:",inline"`
}

func (r *PolicyRepository) Policy(ctx context.Context, id inventory.PropertyID) (overbooking.Policy, error) {
	var doc policyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return r.fallback, nil
		}
		return overbooking.Policy{}, fmt.Errorf("load policy %s: %w", id, err)
	}
	return doc.Policy, nil
}

func (r *PolicyRepository) Set(ctx context.Context, id inventory.PropertyID, p overbooking.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := policyDocument{PropertyID: string(id), Policy: p}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.PropertyID}, doc, options.Replace().SetUpsert(true))
	return err
}

var (
	_ inventory.Provider         = (*PropertyRepository)(nil)
	_ overbooking.PolicyProvider = (*PolicyRepository)(nil)
)
