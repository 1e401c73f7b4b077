package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/survey-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQuestionRepository stores question documents, with embedded answers,
// in the "questions" collection and flattened records in "responses".
type MongoQuestionRepository struct {
	questions *mongo.Collection
	responses *mongo.Collection
}

// NewMongoQuestionRepository creates a new MongoQuestionRepository.
func NewMongoQuestionRepository(db *mongo.Database) *MongoQuestionRepository {
	return &MongoQuestionRepository{
		questions: db.Collection("questions"),
		responses: db.Collection("responses"),
	}
}

var _ QuestionStore = (*MongoQuestionRepository)(nil)

// EnsureIndexes creates the indexes the store queries rely on.
func (r *MongoQuestionRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.questions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "level", Value: 1}, {Key: "order_num", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create questions index: %w", err)
	}
	if _, err := r.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "question_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create responses index: %w", err)
	}
	return nil
}

// List retrieves questions matching the filter.
func (r *MongoQuestionRepository) List(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	query := bson.M{}
	if filter.Level != "" {
		query["level"] = filter.Level
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	cur, err := r.questions.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	questions := []model.Question{}
	if err := cur.All(ctx, &questions); err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].Answers == nil {
			questions[i].Answers = []model.AnswerOption{}
		}
	}

	sortQuestions(questions)
	return questions, nil
}

// GetByID retrieves a question by ID.
func (r *MongoQuestionRepository) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := r.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if q.Answers == nil {
		q.Answers = []model.AnswerOption{}
	}
	return &q, nil
}

// CreateMany inserts a batch of question documents.
func (r *MongoQuestionRepository) CreateMany(ctx context.Context, questions []model.Question) ([]model.Question, error) {
	created := prepareNew(questions, time.Now().UTC().Truncate(time.Millisecond))

	docs := make([]interface{}, len(created))
	for i := range created {
		docs[i] = created[i]
	}
	if _, err := r.questions.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	return created, nil
}

// UpdateMany applies authored edits one document at a time.
func (r *MongoQuestionRepository) UpdateMany(ctx context.Context, questions []model.Question) ([]model.Question, error) {
	for _, edit := range questions {
		if _, err := r.GetByID(ctx, edit.ID); err != nil {
			return nil, err
		}
	}

	updated := make([]model.Question, 0, len(questions))
	for _, edit := range questions {
		merged, err := r.modify(ctx, edit.ID, func(q *model.Question) (bson.M, error) {
			*q = q.WithEdits(edit)
			return bson.M{
				"question":  q.Text,
				"type":      q.Type,
				"category":  q.Category,
				"level":     q.Level,
				"answers":   q.Answers,
				"order_num": q.OrderNum,
			}, nil
		})
		if err != nil {
			return nil, err
		}
		updated = append(updated, *merged)
	}
	return updated, nil
}

// DeleteMany removes questions by ID together with their response records.
func (r *MongoQuestionRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	res, err := r.questions.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	if _, err := r.responses.DeleteMany(ctx, bson.M{"question_id": bson.M{"$in": ids}}); err != nil {
		return res.DeletedCount, fmt.Errorf("delete responses: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteByLevel removes every question of a level.
func (r *MongoQuestionRepository) DeleteByLevel(ctx context.Context, level string) (int64, error) {
	questions, err := r.List(ctx, QuestionFilter{Level: level})
	if err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return r.DeleteMany(ctx, ids)
}

// Reorder rewrites order_num for the listed questions of a level.
func (r *MongoQuestionRepository) Reorder(ctx context.Context, level string, ids []string) error {
	for i, id := range ids {
		res, err := r.questions.UpdateOne(ctx,
			bson.M{"_id": id, "level": level},
			bson.M{"$set": bson.M{"order_num": i}},
		)
		if err != nil {
			return fmt.Errorf("reorder question: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// RecordResponses validates the whole batch against the current documents
// before writing anything, then stores the records and folds them into the
// embedded stats. Stats writes are optimistic per document, so overlapping
// submissions for one question never lose increments.
func (r *MongoQuestionRepository) RecordResponses(ctx context.Context, responses []model.Response) error {
	records := prepareResponses(responses, time.Now().UTC().Truncate(time.Millisecond))

	if _, err := applyAll(records, func(id string) (*model.Question, error) {
		return r.GetByID(ctx, id)
	}); err != nil {
		return err
	}

	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	if _, err := r.responses.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert responses: %w", err)
	}

	ids, texts := groupResponses(records)
	for _, id := range ids {
		_, err := r.modify(ctx, id, func(q *model.Question) (bson.M, error) {
			for _, text := range texts[id] {
				if err := q.ApplyResponse(text); err != nil {
					return nil, err
				}
			}
			return statsSet(q), nil
		})
		if err != nil {
			return fmt.Errorf("update question stats: %w", err)
		}
	}
	return nil
}

// Snapshot reads all questions and optionally every response record. With a
// replica set both reads share one snapshot-concern session; on a standalone
// server they are two plain reads.
func (r *MongoQuestionRepository) Snapshot(ctx context.Context, withResponses bool) ([]model.Question, []model.Response, error) {
	var (
		questions []model.Question
		responses []model.Response
	)
	read := func(ctx context.Context) error {
		var err error
		if questions, err = r.List(ctx, QuestionFilter{}); err != nil {
			return err
		}
		if withResponses {
			if responses, err = r.ListResponses(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	sessOpts := options.Session().SetSnapshot(true)
	err := r.questions.Database().Client().UseSessionWithOptions(ctx, sessOpts, func(sc mongo.SessionContext) error {
		return read(sc)
	})
	if err != nil {
		// Snapshot sessions need a replica set; fall back to plain reads.
		if err := read(ctx); err != nil {
			return nil, nil, err
		}
	}
	return questions, responses, nil
}

// ListResponses retrieves every flattened response record in submission order.
func (r *MongoQuestionRepository) ListResponses(ctx context.Context) ([]model.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.responses.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	responses := []model.Response{}
	if err := cur.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

// ─── Optimistic document writes ──────────────────────────────────────

// maxModifyAttempts bounds how often modify rereads a contended document.
const maxModifyAttempts = 20

// ErrWriteConflict is returned when a document kept changing under modify.
var ErrWriteConflict = errors.New("question changed concurrently")

// modify reads a question, lets change mutate it and build the $set
// document, and writes it only if the stored version is still the one read.
// A lost race rereads the question and tries again.
func (r *MongoQuestionRepository) modify(ctx context.Context, id string, change func(q *model.Question) (bson.M, error)) (*model.Question, error) {
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		q, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		filter := versionFilter(q.ID, q.Version)

		set, err := change(q)
		if err != nil {
			return nil, err
		}
		res, err := r.questions.UpdateOne(ctx, filter, bson.M{
			"$set": set,
			"$inc": bson.M{"version": 1},
		})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			q.Version++
			return q, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWriteConflict, id)
}

// versionFilter matches a document still at version. Documents that were
// never rewritten have no version field.
func versionFilter(id string, version int) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{0, nil}}}
	}
	return bson.M{"_id": id, "version": version}
}

// statsSet is the $set document for a question's embedded stats.
func statsSet(q *model.Question) bson.M {
	set := bson.M{"answers": q.Answers}
	if q.TimesAnswered != nil {
		set["times_answered"] = *q.TimesAnswered
	}
	if q.TimesSkipped != nil {
		set["times_skipped"] = *q.TimesSkipped
	}
	return set
}

// groupResponses collects response texts per question, keeping the order in
// which questions first appear.
func groupResponses(records []model.Response) ([]string, map[string][]string) {
	ids := make([]string, 0)
	texts := make(map[string][]string)
	for _, rec := range records {
		if _, ok := texts[rec.QuestionID]; !ok {
			ids = append(ids, rec.QuestionID)
		}
		texts[rec.QuestionID] = append(texts[rec.QuestionID], rec.Text)
	}
	return ids, texts
}
