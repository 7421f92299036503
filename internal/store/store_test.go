package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), zaptest.NewLogger(t)), mock
}

func TestCreateSession(t *testing.T) {
	s, mock := newStoreWithMock(t)
	started := time.Now().UTC()

	mock.ExpectExec("INSERT INTO research_sessions").
		WithArgs("s1", "solar energy", 3, started).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateSession(context.Background(), "s1", "solar energy", 3, started)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEvidence(t *testing.T) {
	s, mock := newStoreWithMock(t)

	units := []evidence.EvidenceUnit{
		{SubQuestionID: "sq-1", Query: "q1", Depth: 0, Text: "a[1]", GlobalRefs: []int{1}},
		{SubQuestionID: "sq-1", Query: "q2", Depth: 1, Text: "b[2][3]", GlobalRefs: []int{2, 3}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO evidence_units").
		WithArgs("s1", "sq-1", "q1", 0, "a[1]", "{1}").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO evidence_units").
		WithArgs("s1", "sq-1", "q2", 1, "b[2][3]", "{2,3}").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.SaveEvidence(context.Background(), "s1", units)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEvidenceRollsBackOnFailure(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO evidence_units").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SaveEvidence(context.Background(), "s1", []evidence.EvidenceUnit{{Query: "q"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCitations(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO global_citations").
		WithArgs("s1", 1, "https://a.com", "Source A").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO global_citations").
		WithArgs("s1", 2, "https://b.com", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SaveCitations(context.Background(), "s1", []citations.GlobalCitation{
		{ID: 1, URL: "https://a.com", Title: "Source A"},
		{ID: 2, URL: "https://b.com"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport(t *testing.T) {
	s, mock := newStoreWithMock(t)
	done := time.Now().UTC()

	mock.ExpectExec("INSERT INTO reports").
		WithArgs("s1", "# Report", done).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE research_sessions SET completed_at").
		WithArgs("s1", done).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveReport(context.Background(), "s1", "# Report", done)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntArray(t *testing.T) {
	assert.Equal(t, "{}", intArray(nil))
	assert.Equal(t, "{7}", intArray([]int{7}))
	assert.Equal(t, "{1,2,3}", intArray([]int{1, 2, 3}))
}
