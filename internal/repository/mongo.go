package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-bidding/internal/biddingerrors"
	model "live-bidding/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// productDocument is the subset of the product collection this service reads.
// tempamount/tempname hold the latest bid, bidVersion guards concurrent writers.
type productDocument struct {
	ID               primitive.ObjectID `bson:"_id"`
	BiddingStartTime bson.RawValue      `bson:"biddingStartTime"`
	BiddingEndTime   bson.RawValue      `bson:"biddingEndTime"`
	Status           string             `bson:"status"`
	TempAmount       float64            `bson:"tempamount"`
	TempName         string             `bson:"tempname"`
	BidVersion       int64              `bson:"bidVersion"`
	BidUpdatedAt     time.Time          `bson:"bidUpdatedAt"`
}

// MongoRepo implements AuctionDB on top of the product collection
type MongoRepo struct {
	products *mongo.Collection
}

// NewMongoRepo creates a repository backed by the given product collection
func NewMongoRepo(products *mongo.Collection) *MongoRepo {
	return &MongoRepo{products: products}
}

// ReadBidState loads the latest bid stored on the product document
func (r *MongoRepo) ReadBidState(ctx context.Context, itemID string) (model.ItemBidState, error) {
	doc, err := r.findProduct(ctx, itemID, bson.M{"tempamount": 1, "tempname": 1, "bidVersion": 1, "bidUpdatedAt": 1})
	if err != nil {
		return model.ItemBidState{}, fmt.Errorf("read bid state for item %s: %w", itemID, err)
	}
	if doc.BidVersion == 0 && doc.TempAmount == 0 {
		return model.ItemBidState{}, fmt.Errorf("read bid state for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}
	return model.ItemBidState{
		ItemID:     itemID,
		CurrentBid: doc.TempAmount,
		BidderID:   doc.TempName,
		Version:    doc.BidVersion,
		UpdatedAt:  doc.BidUpdatedAt,
	}, nil
}

// WriteBidState updates the product only when the stored version is older
// and the stored bid is not higher
func (r *MongoRepo) WriteBidState(ctx context.Context, itemID string, state model.ItemBidState) error {
	id, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return fmt.Errorf("write bid state for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	filter := bson.M{
		"_id": id,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"bidVersion": bson.M{"$exists": false}},
				bson.M{"bidVersion": bson.M{"$lt": state.Version}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"tempamount": bson.M{"$exists": false}},
				bson.M{"tempamount": bson.M{"$lte": state.CurrentBid}},
			}},
		},
	}
	update := bson.M{"$set": bson.M{
		"tempamount":   state.CurrentBid,
		"tempname":     state.BidderID,
		"bidVersion":   state.Version,
		"bidUpdatedAt": state.UpdatedAt,
	}}

	res, err := r.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("write bid state for item %s: %w", itemID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// nothing matched: either the product is gone or a newer state is stored
	n, err := r.products.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("write bid state for item %s: %w", itemID, err)
	}
	if n == 0 {
		return fmt.Errorf("write bid state for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	return fmt.Errorf("write bid state for item %s at version %d: %w", itemID, state.Version, biddingerrors.ErrStaleWrite)
}

// GetAuctionWindow reads the bidding start/end and status of a product
func (r *MongoRepo) GetAuctionWindow(ctx context.Context, itemID string) (model.AuctionWindow, error) {
	doc, err := r.findProduct(ctx, itemID, bson.M{"biddingStartTime": 1, "biddingEndTime": 1, "status": 1})
	if err != nil {
		return model.AuctionWindow{}, fmt.Errorf("get auction window for item %s: %w", itemID, err)
	}

	start, err := parseProductTime(doc.BiddingStartTime)
	if err != nil {
		return model.AuctionWindow{}, fmt.Errorf("get auction window for item %s: biddingStartTime: %w", itemID, err)
	}
	end, err := parseProductTime(doc.BiddingEndTime)
	if err != nil {
		return model.AuctionWindow{}, fmt.Errorf("get auction window for item %s: biddingEndTime: %w", itemID, err)
	}

	return model.AuctionWindow{
		ItemID: itemID,
		Start:  start,
		End:    end,
		Closed: doc.Status == model.ItemStatusClosed,
	}, nil
}

func (r *MongoRepo) findProduct(ctx context.Context, itemID string, projection bson.M) (productDocument, error) {
	id, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return productDocument{}, biddingerrors.ErrItemNotFound
	}

	var doc productDocument
	err = r.products.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(projection)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return productDocument{}, biddingerrors.ErrItemNotFound
	}
	if err != nil {
		return productDocument{}, err
	}
	return doc, nil
}

// parseProductTime accepts both ISO-8601 strings and BSON dates
func parseProductTime(v bson.RawValue) (time.Time, error) {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return time.Time{}, nil
	case bsontype.DateTime:
		return v.Time().UTC(), nil
	case bsontype.String:
		s := v.StringValue()
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported bson type %s", v.Type)
	}
}
