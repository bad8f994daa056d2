package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fanvue/moderation-api/internal/models"
)

// submissionColumns aliases the flat row into the nested Submission struct.
const submissionColumns = `id, name, description, status, category, version, submitted_at, updated_at,
        developer_id AS "developer.id", developer_name AS "developer.name", developer_email AS "developer.email",
        downloads AS "metadata.downloads", rating AS "metadata.rating", file_size AS "metadata.file_size"`

// sortColumns whitelists the exposed sort keys against their columns.
var sortColumns = map[string]string{
	"name":        "name",
	"submittedAt": "submitted_at",
	"rating":      "rating",
}

const defaultSortColumn = "submitted_at"

// SubmissionRepository manages persistence for app submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns one keyset-paginated page of submissions matching the filter.
//
// The cursor encodes the sort-key value of the previous page's last row; the
// boundary comparison uses that single column, so rows sharing the boundary
// value can be skipped or repeated across a page break. A cursor that fails to
// decode is ignored and the listing restarts from the top.
func (r *SubmissionRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Submission, *models.PageInfo, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
	}
	if len(filter.Categories) > 0 {
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(categoryStrings(filter.Categories)))
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = defaultSortColumn
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	size := filter.PageSize
	if size <= 0 {
		size = 50
	}

	// The count query sees only the filter predicates, never the cursor.
	countWhere := strings.Join(conditions, " AND ")
	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	if filter.Cursor != "" {
		if boundary, ok := decodeCursor(filter.Cursor, column); ok {
			op := ">"
			if order == "DESC" {
				op = "<"
			}
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", column, op, len(args)+1))
			args = append(args, boundary)
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM app_submissions WHERE %s ORDER BY %s %s LIMIT %d`,
		submissionColumns, strings.Join(conditions, " AND "), column, order, size+1)

	var rows []models.Submission
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list submissions: %w", err)
	}

	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}

	info := &models.PageInfo{
		HasNextPage:     hasNext,
		HasPreviousPage: filter.Cursor != "",
	}
	if hasNext && len(rows) > 0 {
		info.NextCursor = encodeCursor(rows[len(rows)-1], column)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM app_submissions WHERE %s", countWhere)
	if err := r.db.GetContext(ctx, &info.TotalCount, countQuery, countArgs...); err != nil {
		return nil, nil, fmt.Errorf("count submissions: %w", err)
	}

	return rows, info, nil
}

// FindByID fetches a single submission.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM app_submissions WHERE id = $1", submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateStatus applies a moderation verdict as a single-row update. Repeated
// identical verdicts still refresh updated_at.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	const query = `UPDATE app_submissions SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Insert stores a new submission, used by the seeder.
func (r *SubmissionRepository) Insert(ctx context.Context, sub *models.Submission) error {
	const query = `INSERT INTO app_submissions
        (id, name, description, status, category, version, submitted_at, updated_at,
         developer_id, developer_name, developer_email, downloads, rating, file_size)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.Description, sub.Status, sub.Category, sub.Version,
		sub.SubmittedAt, sub.UpdatedAt,
		sub.Developer.ID, sub.Developer.Name, sub.Developer.Email,
		sub.Metadata.Downloads, sub.Metadata.Rating, sub.Metadata.FileSize,
	); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// encodeCursor wraps the row's sort-key value in an opaque token.
func encodeCursor(sub models.Submission, column string) string {
	var raw string
	switch column {
	case "name":
		raw = sub.Name
	case "rating":
		raw = strconv.FormatFloat(sub.Metadata.Rating, 'f', -1, 64)
	default:
		raw = sub.SubmittedAt.UTC().Format(time.RFC3339Nano)
	}
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// decodeCursor recovers the boundary value for the sort column. Any decode or
// parse failure reports false; the caller then proceeds without a cursor.
func decodeCursor(token, column string) (interface{}, bool) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}
	switch column {
	case "name":
		return string(raw), true
	case "rating":
		rating, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, false
		}
		return rating, true
	default:
		ts, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return nil, false
		}
		return ts, true
	}
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func categoryStrings(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
