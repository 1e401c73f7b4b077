package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/survey-backend/internal/model"
)

const questionColumns = `id::text, question_text, question_type, category, level, answers,
	times_answered, times_skipped, order_num, created_at`

// PostgresQuestionRepository stores question documents in PostgreSQL with the
// embedded answers held in a JSONB column.
type PostgresQuestionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQuestionRepository creates a new PostgresQuestionRepository.
func NewPostgresQuestionRepository(pool *pgxpool.Pool) *PostgresQuestionRepository {
	return &PostgresQuestionRepository{pool: pool}
}

var _ QuestionStore = (*PostgresQuestionRepository)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var (
		q       model.Question
		answers []byte
	)
	if err := row.Scan(&q.ID, &q.Text, &q.Type, &q.Category, &q.Level, &answers,
		&q.TimesAnswered, &q.TimesSkipped, &q.OrderNum, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Answers = []model.AnswerOption{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &q.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", q.ID, err)
		}
	}
	return &q, nil
}

func encodeAnswers(answers []model.AnswerOption) ([]byte, error) {
	if answers == nil {
		answers = []model.AnswerOption{}
	}
	return json.Marshal(answers)
}

// List retrieves questions matching the filter.
func (r *PostgresQuestionRepository) List(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	return listQuestions(ctx, r.pool, filter)
}

// Snapshot reads every question, and optionally every response record, inside
// one read-only repeatable-read transaction.
func (r *PostgresQuestionRepository) Snapshot(ctx context.Context, withResponses bool) ([]model.Question, []model.Response, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	questions, err := listQuestions(ctx, tx, QuestionFilter{})
	if err != nil {
		return nil, nil, err
	}
	var responses []model.Response
	if withResponses {
		if responses, err = listResponses(ctx, tx); err != nil {
			return nil, nil, err
		}
	}
	return questions, responses, tx.Commit(ctx)
}

func listQuestions(ctx context.Context, db querier, filter QuestionFilter) ([]model.Question, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Level != "" {
		args = append(args, filter.Level)
		conds = append(conds, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY order_num, created_at`

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortQuestions(questions)
	return questions, nil
}

// GetByID retrieves a question by ID.
func (r *PostgresQuestionRepository) GetByID(ctx context.Context, id string) (*model.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// CreateMany inserts a batch of questions in one transaction.
func (r *PostgresQuestionRepository) CreateMany(ctx context.Context, questions []model.Question) ([]model.Question, error) {
	created := prepareNew(questions, time.Now().UTC())

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range created {
		answers, err := encodeAnswers(q.Answers)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, question_text, question_type, category, level, answers,
				times_answered, times_skipped, order_num, created_at)
			 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			q.ID, q.Text, string(q.Type), q.Category, q.Level, answers,
			q.TimesAnswered, q.TimesSkipped, q.OrderNum, q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// UpdateMany applies edits to a batch of questions in one transaction.
func (r *PostgresQuestionRepository) UpdateMany(ctx context.Context, questions []model.Question) ([]model.Question, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated := make([]model.Question, 0, len(questions))
	for _, edit := range questions {
		existing, err := lockQuestion(ctx, tx, edit.ID)
		if err != nil {
			return nil, err
		}
		merged := existing.WithEdits(edit)

		answers, err := encodeAnswers(merged.Answers)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE questions
			 SET question_text = $2, question_type = $3, category = $4, level = $5,
			     answers = $6, order_num = $7
			 WHERE id = $1::uuid`,
			merged.ID, merged.Text, string(merged.Type), merged.Category, merged.Level,
			answers, merged.OrderNum,
		); err != nil {
			return nil, fmt.Errorf("update question: %w", err)
		}
		updated = append(updated, merged)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// DeleteMany removes questions by ID. Their response records cascade.
func (r *PostgresQuestionRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByLevel removes every question of a level.
func (r *PostgresQuestionRepository) DeleteByLevel(ctx context.Context, level string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE level = $1`, level)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Reorder rewrites order_num for the listed questions of a level.
func (r *PostgresQuestionRepository) Reorder(ctx context.Context, level string, ids []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, id := range ids {
		tag, err := tx.Exec(ctx,
			`UPDATE questions SET order_num = $1 WHERE id = $2::uuid AND level = $3`,
			i, id, level,
		)
		if err != nil {
			return fmt.Errorf("reorder question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

// RecordResponses stores a submitted batch atomically. Each touched question
// row is locked while its embedded stats are rewritten.
func (r *PostgresQuestionRepository) RecordResponses(ctx context.Context, responses []model.Response) error {
	records := prepareResponses(responses, time.Now().UTC())

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	touched, err := applyAll(records, func(id string) (*model.Question, error) {
		return lockQuestion(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO responses (id, question_id, answer_text, created_at)
			 VALUES ($1::uuid, $2::uuid, $3, $4)`,
			rec.ID, rec.QuestionID, rec.Text, rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}

	for _, q := range touched {
		answers, err := encodeAnswers(q.Answers)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE questions SET answers = $2, times_answered = $3, times_skipped = $4
			 WHERE id = $1::uuid`,
			q.ID, answers, q.TimesAnswered, q.TimesSkipped,
		); err != nil {
			return fmt.Errorf("update question stats: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListResponses retrieves every flattened response record in submission order.
func (r *PostgresQuestionRepository) ListResponses(ctx context.Context) ([]model.Response, error) {
	return listResponses(ctx, r.pool)
}

func listResponses(ctx context.Context, db querier) ([]model.Response, error) {
	rows, err := db.Query(ctx,
		`SELECT id::text, question_id::text, answer_text, created_at
		 FROM responses ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var rec model.Response
		if err := rows.Scan(&rec.ID, &rec.QuestionID, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, rec)
	}
	return responses, rows.Err()
}

func lockQuestion(ctx context.Context, tx pgx.Tx, id string) (*model.Question, error) {
	q, err := scanQuestion(tx.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1::uuid FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}
