package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"idealtransport/models"
)

const (
	expenseCollection = "daily_expenses"
	counterCollection = "counters"
)

// MongoExpenseRepo keeps daily expense logs in a document store. Ids are
// int64 sequences so API clients see the same shape as with Postgres.
type MongoExpenseRepo struct {
	DB *mongo.Database
}

func NewMongoExpenseRepo(db *mongo.Database) *MongoExpenseRepo {
	return &MongoExpenseRepo{DB: db}
}

type expenseDoc struct {
	ID                      int64                 `bson:"_id"`
	Date                    time.Time             `bson:"date"`
	DieselAmount            primitive.Decimal128  `bson:"diesel_amount"`
	DieselLocation          string                `bson:"diesel_location"`
	DefAmount               primitive.Decimal128  `bson:"def_amount"`
	DefLocation             string                `bson:"def_location"`
	OtherExpenseDescription string                `bson:"other_expense_description"`
	OtherExpenseAmount      *primitive.Decimal128 `bson:"other_expense_amount,omitempty"`
	OtherExpenseLocation    string                `bson:"other_expense_location"`
	Total                   primitive.Decimal128  `bson:"total"`
	UserID                  int64                 `bson:"user_id"`
	CreatedAt               time.Time             `bson:"created_at"`
	UpdatedAt               *time.Time            `bson:"updated_at,omitempty"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal.String never produces text Decimal128 rejects.
		panic(fmt.Sprintf("repository: decimal %s: %v", d, err))
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func newExpenseDoc(e *models.DailyExpense) expenseDoc {
	doc := expenseDoc{
		ID:                      e.ID,
		Date:                    e.Date.Time,
		DieselAmount:            toDecimal128(e.DieselAmount),
		DieselLocation:          e.DieselLocation,
		DefAmount:               toDecimal128(e.DefAmount),
		DefLocation:             e.DefLocation,
		OtherExpenseDescription: e.OtherExpenseDescription,
		OtherExpenseLocation:    e.OtherExpenseLocation,
		Total:                   toDecimal128(e.Total),
		UserID:                  e.UserID,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
	}
	if e.OtherExpenseAmount.Valid {
		v := toDecimal128(e.OtherExpenseAmount.Decimal)
		doc.OtherExpenseAmount = &v
	}
	return doc
}

func (d *expenseDoc) model() *models.DailyExpense {
	y, m, day := d.Date.Date()
	e := &models.DailyExpense{
		ID:                      d.ID,
		Date:                    models.NewDate(y, m, day),
		DieselAmount:            fromDecimal128(d.DieselAmount),
		DieselLocation:          d.DieselLocation,
		DefAmount:               fromDecimal128(d.DefAmount),
		DefLocation:             d.DefLocation,
		OtherExpenseDescription: d.OtherExpenseDescription,
		OtherExpenseLocation:    d.OtherExpenseLocation,
		Total:                   fromDecimal128(d.Total),
		UserID:                  d.UserID,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
	if d.OtherExpenseAmount != nil {
		e.OtherExpenseAmount = decimal.NewNullDecimal(fromDecimal128(*d.OtherExpenseAmount))
	}
	return e
}

func (r *MongoExpenseRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.DB.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": expenseCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate expense id: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoExpenseRepo) CreateExpense(ctx context.Context, e *models.DailyExpense) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt = time.Now().UTC()

	if _, err := r.DB.Collection(expenseCollection).InsertOne(ctx, newExpenseDoc(e)); err != nil {
		return fmt.Errorf("insert daily expense: %w", err)
	}
	return nil
}

func (r *MongoExpenseRepo) GetExpense(ctx context.Context, userID, id int64) (*models.DailyExpense, error) {
	var doc expenseDoc
	err := r.DB.Collection(expenseCollection).FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get daily expense: %w", err)
	}
	return doc.model(), nil
}

func (r *MongoExpenseRepo) ListExpenses(ctx context.Context, userID int64, f models.ExpenseFilter) ([]*models.DailyExpense, error) {
	filter := bson.M{"user_id": userID}
	dateRange := bson.M{}
	if !f.StartDate.IsZero() {
		dateRange["$gte"] = f.StartDate.Time
	}
	if !f.EndDate.IsZero() {
		dateRange["$lte"] = f.EndDate.Time
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.DB.Collection(expenseCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list daily expenses: %w", err)
	}
	defer cur.Close(ctx)

	var out []*models.DailyExpense
	for cur.Next(ctx) {
		var doc expenseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode daily expense: %w", err)
		}
		out = append(out, doc.model())
	}
	return out, cur.Err()
}

func (r *MongoExpenseRepo) UpdateExpense(ctx context.Context, e *models.DailyExpense) error {
	now := time.Now().UTC()
	e.UpdatedAt = &now
	doc := newExpenseDoc(e)

	set := bson.M{
		"date":                      doc.Date,
		"diesel_amount":             doc.DieselAmount,
		"diesel_location":           doc.DieselLocation,
		"def_amount":                doc.DefAmount,
		"def_location":              doc.DefLocation,
		"other_expense_description": doc.OtherExpenseDescription,
		"other_expense_location":    doc.OtherExpenseLocation,
		"total":                     doc.Total,
		"updated_at":                now,
	}
	update := bson.M{"$set": set}
	if doc.OtherExpenseAmount != nil {
		set["other_expense_amount"] = *doc.OtherExpenseAmount
	} else {
		update["$unset"] = bson.M{"other_expense_amount": ""}
	}

	var stored expenseDoc
	err := r.DB.Collection(expenseCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": e.ID, "user_id": e.UserID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("update daily expense: %w", err)
	}
	e.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MongoExpenseRepo) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.DB.Collection(expenseCollection).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete daily expense: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ ExpenseRepository = (*MongoExpenseRepo)(nil)
