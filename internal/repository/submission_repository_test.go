package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvue/moderation-api/internal/models"
)

func newSubmissionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "status", "category", "version", "submitted_at", "updated_at",
		"developer.id", "developer.name", "developer.email",
		"metadata.downloads", "metadata.rating", "metadata.file_size",
	})
}

func addRow(rows *sqlmock.Rows, id, name string, status models.Status, rating float64, submittedAt time.Time) {
	rows.AddRow(id, name, "desc "+name, string(status), "social", "1.0.0", submittedAt, submittedAt,
		"dev-1", "Developer 1", "dev1@example.com", int64(10), rating, 12.5)
}

func listQuery(where, column, order string, limit int) string {
	return regexp.QuoteMeta(fmt.Sprintf(`SELECT %s FROM app_submissions WHERE %s ORDER BY %s %s LIMIT %d`,
		submissionColumns, where, column, order, limit))
}

func countQuery(where string) string {
	return regexp.QuoteMeta(fmt.Sprintf("SELECT COUNT(*) FROM app_submissions WHERE %s", where))
}

func TestSubmissionRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := submissionRows()
	addRow(rows, "app-1", "Chess", models.StatusPending, 4.2, time.Now())

	mock.ExpectQuery(listQuery("1=1", "submitted_at", "DESC", 51)).WillReturnRows(rows)
	mock.ExpectQuery(countQuery("1=1")).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	subs, info, err := repo.List(context.Background(), models.ListFilter{PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 1, info.TotalCount)
	assert.False(t, info.HasNextPage)
	assert.False(t, info.HasPreviousPage)
	assert.Empty(t, info.NextCursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListPredicates(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	where := "1=1 AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $1) AND status = ANY($2) AND category = ANY($3)"
	rows := submissionRows()
	addRow(rows, "app-1", "Chess Club", models.StatusApproved, 4.8, time.Now())

	mock.ExpectQuery(listQuery(where, "rating", "ASC", 51)).
		WithArgs("%chess%", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectQuery(countQuery(where)).
		WithArgs("%chess%", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	subs, info, err := repo.List(context.Background(), models.ListFilter{
		Search:     "Chess",
		Statuses:   []models.Status{models.StatusApproved},
		Categories: []models.Category{models.CategorySocial, models.CategoryEducation},
		SortBy:     "rating",
		SortOrder:  "asc",
		PageSize:   50,
	})
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 1, info.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListNextPageProbe(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := submissionRows()
	addRow(rows, "app-1", "Apple", models.StatusApproved, 4.0, time.Now())
	addRow(rows, "app-2", "Banana", models.StatusApproved, 4.1, time.Now())
	addRow(rows, "app-3", "Cherry", models.StatusApproved, 4.2, time.Now())

	mock.ExpectQuery(listQuery("1=1", "name", "ASC", 3)).WillReturnRows(rows)
	mock.ExpectQuery(countQuery("1=1")).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	subs, info, err := repo.List(context.Background(), models.ListFilter{SortBy: "name", SortOrder: "asc", PageSize: 2})
	require.NoError(t, err)
	// The probe row is discarded; the cursor comes from the last returned row.
	require.Len(t, subs, 2)
	assert.Equal(t, "Banana", subs[1].Name)
	assert.True(t, info.HasNextPage)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("Banana")), info.NextCursor)
	assert.Equal(t, 5, info.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListExample(t *testing.T) {
	// Store: Banana (approved), Apple (approved), Cherry (pending).
	// Filter approved, sort by name asc, page size 2 -> [Apple, Banana], no next page.
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	where := "1=1 AND status = ANY($1)"
	rows := submissionRows()
	addRow(rows, "app-2", "Apple", models.StatusApproved, 4.0, time.Now())
	addRow(rows, "app-1", "Banana", models.StatusApproved, 4.1, time.Now())

	mock.ExpectQuery(listQuery(where, "name", "ASC", 3)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectQuery(countQuery(where)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	subs, info, err := repo.List(context.Background(), models.ListFilter{
		Statuses: []models.Status{models.StatusApproved},
		SortBy:   "name",
		SortOrder: "asc",
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Apple", subs[0].Name)
	assert.Equal(t, "Banana", subs[1].Name)
	assert.False(t, info.HasNextPage)
	assert.Empty(t, info.NextCursor)
	assert.Equal(t, 2, info.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListCursorBoundary(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	cursor := base64.StdEncoding.EncodeToString([]byte("Banana"))

	mock.ExpectQuery(listQuery("1=1 AND name > $1", "name", "ASC", 51)).
		WithArgs("Banana").
		WillReturnRows(submissionRows())
	mock.ExpectQuery(countQuery("1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	subs, info, err := repo.List(context.Background(), models.ListFilter{
		SortBy: "name", SortOrder: "asc", Cursor: cursor, PageSize: 50,
	})
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.True(t, info.HasPreviousPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListCursorExcludesTies(t *testing.T) {
	// The boundary is strict on the single sort column, so rows whose rating
	// equals the boundary value are skipped on the next page. Pinned as the
	// known keyset limitation.
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	cursor := base64.StdEncoding.EncodeToString([]byte("4.5"))

	mock.ExpectQuery(listQuery("1=1 AND rating < $1", "rating", "DESC", 51)).
		WithArgs(4.5).
		WillReturnRows(submissionRows())
	mock.ExpectQuery(countQuery("1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	_, _, err := repo.List(context.Background(), models.ListFilter{
		SortBy: "rating", SortOrder: "desc", Cursor: cursor, PageSize: 50,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListMalformedCursor(t *testing.T) {
	// A cursor that does not decode is ignored entirely; the query runs
	// without a boundary condition instead of failing.
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(listQuery("1=1", "submitted_at", "DESC", 51)).
		WillReturnRows(submissionRows())
	mock.ExpectQuery(countQuery("1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, info, err := repo.List(context.Background(), models.ListFilter{Cursor: "%%%not-base64%%%", PageSize: 50})
	require.NoError(t, err)
	assert.True(t, info.HasPreviousPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListSortFallback(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(listQuery("1=1", "submitted_at", "DESC", 51)).
		WillReturnRows(submissionRows())
	mock.ExpectQuery(countQuery("1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ListFilter{SortBy: "downloads; DROP TABLE", SortOrder: "sideways", PageSize: 50})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := submissionRows()
	addRow(rows, "app-1", "Chess", models.StatusPending, 4.2, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("SELECT %s FROM app_submissions WHERE id = $1", submissionColumns))).
		WithArgs("app-1").
		WillReturnRows(rows)

	sub, err := repo.FindByID(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Chess", sub.Name)
	assert.Equal(t, "dev-1", sub.Developer.ID)
	assert.Equal(t, 4.2, sub.Metadata.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE app_submissions SET status").
		WithArgs("app-1", "approved", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "app-1", models.StatusApproved, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateStatusUnknownID(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("UPDATE app_submissions SET status").
		WithArgs("ghost", "flagged", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", models.StatusFlagged, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO app_submissions").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), &models.Submission{
		ID: "app-1", Name: "Chess", Status: models.StatusPending, Category: models.CategorySocial,
		Version: "1.0.0", SubmittedAt: time.Now(), UpdatedAt: time.Now(),
		Developer: models.Developer{ID: "dev-1", Name: "Developer 1", Email: "dev1@example.com"},
		Metadata:  models.Metadata{Downloads: 10, Rating: 4.2, FileSize: 12.5},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursorRoundTrip(t *testing.T) {
	submitted := time.Date(2026, 2, 14, 10, 30, 0, 123456789, time.UTC)
	sub := models.Submission{Name: "Chess", SubmittedAt: submitted}
	sub.Metadata.Rating = 4.25

	name, ok := decodeCursor(encodeCursor(sub, "name"), "name")
	require.True(t, ok)
	assert.Equal(t, "Chess", name)

	rating, ok := decodeCursor(encodeCursor(sub, "rating"), "rating")
	require.True(t, ok)
	assert.Equal(t, 4.25, rating)

	ts, ok := decodeCursor(encodeCursor(sub, "submitted_at"), "submitted_at")
	require.True(t, ok)
	assert.True(t, submitted.Equal(ts.(time.Time)))
}

func TestDecodeCursorMalformed(t *testing.T) {
	_, ok := decodeCursor("%%%not-base64%%%", "name")
	assert.False(t, ok)

	// Valid base64, not a float.
	_, ok = decodeCursor(base64.StdEncoding.EncodeToString([]byte("Chess")), "rating")
	assert.False(t, ok)

	// Valid base64, not a timestamp.
	_, ok = decodeCursor(base64.StdEncoding.EncodeToString([]byte("Chess")), "submitted_at")
	assert.False(t, ok)
}
