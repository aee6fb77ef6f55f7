package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const customersCollection = "customers"

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

type mongoCustomerRepository struct {
	coll *mongo.Collection
}

// NewMongoCustomerRepository creates customer repository for mongo
func NewMongoCustomerRepository(client *mongo.Client, database string) CustomerRepository {
	return &mongoCustomerRepository{coll: client.Database(database).Collection(customersCollection)}
}

func (r *mongoCustomerRepository) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *mongoCustomerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	customers := make([]*model.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *mongoCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return customerExistsErr(c.ID)
		}
		return err
	}
	return nil
}

func (r *mongoCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	upd := bson.M{
		"$set": bson.M{
			"nationalId": c.NationalID,
			"firstNames": c.FirstNames,
			"lastNames":  c.LastNames,
			"birthDate":  c.BirthDate,
			"sex":        c.Sex,
		},
	}
	_, err := r.coll.UpdateByID(ctx, c.ID, upd)
	return err
}

func (r *mongoCustomerRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *mongoCustomerRepository) Watch(ctx context.Context, fn func(*model.CustomerChange) error) error {
	stream, err := r.coll.Watch(ctx, mongo.Pipeline{}, options.ChangeStream())
	if err != nil {
		return fmt.Errorf("failed to open change stream - %w", err)
	}
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			logrus.Warnf("failed to close change stream - %v", err)
		}
	}()

	if err := fn(&model.CustomerChange{Op: model.ChangeSync}); err != nil {
		return err
	}

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			logrus.Warnf("skipping undecodable change event - %v", err)
			continue
		}

		change, ok := customerChange(&ev)
		if !ok {
			continue
		}

		if err := fn(change); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("change stream failed - %w", err)
	}

	// invalidate after collection drop or rename
	return ErrFeedClosed
}

// customerChange maps change event to customer change, events without document are ignored
func customerChange(ev *changeEvent) (*model.CustomerChange, bool) {
	if ev.DocumentKey.ID == "" {
		return nil, false
	}

	change := &model.CustomerChange{ID: ev.DocumentKey.ID}
	switch ev.OperationType {
	case "insert":
		change.Op = model.ChangeInsert
	case "update", "replace":
		change.Op = model.ChangeUpdate
	case "delete":
		change.Op = model.ChangeDelete
	default:
		return nil, false
	}
	return change, true
}
