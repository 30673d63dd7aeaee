package docstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studentdesk/internal/models"
	"studentdesk/internal/query"
	"studentdesk/internal/repository"
)

type studentDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	StudentID string             `bson:"studentId"`
	Age       int                `bson:"age"`
	Gender    string             `bson:"gender,omitempty"`
	Major     string             `bson:"major"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d studentDocument) model() models.Student {
	return models.Student{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		StudentID: d.StudentID,
		Age:       d.Age,
		Gender:    models.Gender(d.Gender),
		Major:     d.Major,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type StudentRepository struct {
	coll *mongo.Collection
}

func NewStudentRepository(db *mongo.Database) *StudentRepository {
	return &StudentRepository{coll: db.Collection(studentsCollection)}
}

func (r *StudentRepository) Create(ctx context.Context, student models.Student) (models.Student, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := studentDocument{
		ID:        primitive.NewObjectID(),
		Name:      student.Name,
		StudentID: student.StudentID,
		Age:       student.Age,
		Gender:    string(student.Gender),
		Major:     student.Major,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Student{}, repository.ErrDuplicateStudentID
		}
		return models.Student{}, err
	}
	return doc.model(), nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	oid, ok := objectID(id)
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}

	var doc studentDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Student{}, repository.ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return doc.model(), nil
}

func (r *StudentRepository) List(ctx context.Context, filter query.StudentFilter) ([]models.Student, error) {
	opts := options.Find()
	if filter.SortByName {
		opts.SetSort(bson.D{{Key: "name", Value: 1}})
	}

	cursor, err := r.coll.Find(ctx, studentQuery(filter), opts)
	if err != nil {
		return nil, err
	}

	var docs []studentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.model())
	}
	return students, nil
}

func (r *StudentRepository) Update(ctx context.Context, id string, student models.Student) (models.Student, error) {
	oid, ok := objectID(id)
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}

	set := bson.M{
		"name":      student.Name,
		"studentId": student.StudentID,
		"age":       student.Age,
		"major":     student.Major,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}
	update := bson.M{"$set": set}
	if student.Gender != "" {
		set["gender"] = string(student.Gender)
	} else {
		update["$unset"] = bson.M{"gender": ""}
	}

	var doc studentDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return models.Student{}, repository.ErrStudentNotFound
		case mongo.IsDuplicateKeyError(err):
			return models.Student{}, repository.ErrDuplicateStudentID
		}
		return models.Student{}, err
	}
	return doc.model(), nil
}

func (r *StudentRepository) Delete(ctx context.Context, id string) (models.Student, error) {
	oid, ok := objectID(id)
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}

	var doc studentDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Student{}, repository.ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return doc.model(), nil
}

func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

// studentQuery translates filter into a find document. Text terms are quoted so
// they match literally, case-insensitively.
func studentQuery(filter query.StudentFilter) bson.M {
	q := bson.M{}
	if filter.Name != "" {
		q["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Name), "$options": "i"}
	}
	if filter.Major != "" {
		q["major"] = bson.M{"$regex": regexp.QuoteMeta(filter.Major), "$options": "i"}
	}
	if filter.Gender != "" {
		q["gender"] = string(filter.Gender)
	}

	age := bson.M{}
	if filter.MinAge != nil {
		age["$gte"] = *filter.MinAge
	}
	if filter.MaxAge != nil {
		age["$lte"] = *filter.MaxAge
	}
	if len(age) > 0 {
		q["age"] = age
	}
	return q
}
