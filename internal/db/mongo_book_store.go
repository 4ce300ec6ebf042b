package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vieux-grimoire-api/internal/models"
)

type MongoBookStore struct {
	Collection *mongo.Collection
}

func NewMongoBookStore(coll *mongo.Collection) *MongoBookStore {
	return &MongoBookStore{Collection: coll}
}

func (s *MongoBookStore) Insert(ctx context.Context, book models.Book) (models.Book, error) {
	book.ID = primitive.NewObjectID()
	if book.Ratings == nil {
		book.Ratings = []models.Rating{}
	}
	if _, err := s.Collection.InsertOne(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *MongoBookStore) FindByID(ctx context.Context, id string) (models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Book{}, ErrBookNotFound
	}

	var book models.Book
	err = s.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Book{}, ErrBookNotFound
		}
		return models.Book{}, fmt.Errorf("find book %s: %w", id, err)
	}
	return book, nil
}

func (s *MongoBookStore) FindAll(ctx context.Context) ([]models.Book, error) {
	return s.find(ctx, bson.M{}, options.Find())
}

func (s *MongoBookStore) FindTopRated(ctx context.Context, limit int) ([]models.Book, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "averageRating", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{}, opts)
}

func (s *MongoBookStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Book, error) {
	cursor, err := s.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err = cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return books, nil
}

func (s *MongoBookStore) Update(ctx context.Context, book models.Book) error {
	result, err := s.Collection.UpdateOne(
		ctx,
		bson.M{"_id": book.ID},
		bson.M{"$set": bson.M{
			"title":    book.Title,
			"author":   book.Author,
			"year":     book.Year,
			"genre":    book.Genre,
			"imageUrl": book.ImageURL,
		}},
	)
	if err != nil {
		return fmt.Errorf("update book %s: %w", book.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (s *MongoBookStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrBookNotFound
	}

	result, err := s.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

// AddRating matches the book only while the user has no rating on it, then appends the
// rating and recomputes the average inside the same update pipeline.
func (s *MongoBookStore) AddRating(ctx context.Context, id string, rating models.Rating) (models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Book{}, ErrBookNotFound
	}

	filter := bson.M{
		"_id":            oid,
		"ratings.userId": bson.M{"$ne": rating.UserID},
	}
	newRating := bson.M{"$literal": bson.D{
		{Key: "userId", Value: rating.UserID},
		{Key: "grade", Value: rating.Grade},
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ratings": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$ratings", bson.A{}}},
				bson.A{newRating},
			}},
		}}},
		{{Key: "$set", Value: bson.M{"averageRating": bson.M{"$avg": "$ratings.grade"}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var book models.Book
	err = s.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&book)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, fmt.Errorf("rate book %s: %w", id, err)
	}

	// nothing matched: either the book is gone or the user already rated it
	if _, err := s.FindByID(ctx, id); err != nil {
		return models.Book{}, err
	}
	return models.Book{}, ErrAlreadyRated
}

func (s *MongoBookStore) Stats(ctx context.Context) (models.CatalogStats, error) {
	var stats models.CatalogStats

	total, err := s.Collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("count books: %w", err)
	}
	rated, err := s.Collection.CountDocuments(ctx, bson.M{"ratings.0": bson.M{"$exists": true}})
	if err != nil {
		return stats, fmt.Errorf("count rated books: %w", err)
	}

	cursor, err := s.Collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$size": bson.M{"$ifNull": bson.A{"$ratings", bson.A{}}}}},
		}}},
	})
	if err != nil {
		return stats, fmt.Errorf("count ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return stats, fmt.Errorf("decode rating count: %w", err)
	}

	stats.TotalBooks = total
	stats.RatedBooks = rated
	if len(groups) > 0 {
		stats.TotalRatings = groups[0].Total
	}
	return stats, nil
}
