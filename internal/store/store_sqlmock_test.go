package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lab-allocation-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_TransitionRequest_SQL(t *testing.T) {
	testCases := []struct {
		name             string
		expected         model.RequestStatus
		next             model.RequestStatus
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedErr      error
	}{
		{
			name:     "Pending request is approved",
			expected: model.RequestPending,
			next:     model.RequestApproved,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "requests" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "requests" WHERE id = $1`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "status", "version"}).
						AddRow("req-1", "approved", 2))
				mock.ExpectCommit()
			},
		},
		{
			name:     "Request changed underneath, conflict",
			expected: model.RequestPending,
			next:     model.RequestCancelled,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "requests" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "requests" WHERE id = $1`)).
					WithArgs("req-1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectRollback()
			},
			expectedErr: model.ErrConflict,
		},
		{
			name:     "Request does not exist",
			expected: model.RequestPending,
			next:     model.RequestRejected,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "requests" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "requests" WHERE id = $1`)).
					WithArgs("req-1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectRollback()
			},
			expectedErr: model.ErrNotFound,
		},
		{
			name:     "Database failure is reported as unavailable",
			expected: model.RequestPending,
			next:     model.RequestRejected,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "requests" SET`)).
					WillReturnError(errors.New("connection reset by peer"))
				mock.ExpectRollback()
			},
			expectedErr: model.ErrUnavailable,
		},
		{
			name:             "Terminal request never reaches the database",
			expected:         model.RequestApproved,
			next:             model.RequestCancelled,
			mockExpectations: func(mock sqlmock.Sqlmock) {},
			expectedErr:      model.ErrInvalidTransition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewGormStore(db, time.Second)

			tc.mockExpectations(mock)

			updated, err := s.TransitionRequest(context.Background(), "req-1", tc.expected, tc.next, RequestPatch{})
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.next, updated.Status)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_CommitAllocation_SQL(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "systems" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "systems" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := s.CommitAllocation(context.Background(), AllocationCommit{
		RequestID:      "req-1",
		RequestVersion: 1,
		Systems:        []SystemClaim{{ID: 1, Version: 1}, {ID: 2, Version: 1}},
		Assignment:     model.Assignment{RequesterLoginID: "S1", RequesterName: "Asha", TimeSlot: "10:00-12:00"},
	})
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CommitAllocation_LostLockRace(t *testing.T) {
	testCases := []struct {
		name  string
		code  string
		check error
	}{
		{name: "deadlock", code: "40P01", check: model.ErrConflict},
		{name: "serialization failure", code: "40001", check: model.ErrConflict},
		{name: "connection failure", code: "08006", check: model.ErrUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewGormStore(db, time.Second)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "systems" SET`)).
				WillReturnError(&pgconn.PgError{Code: tc.code, Message: "lock race"})
			mock.ExpectRollback()

			_, _, err := s.CommitAllocation(context.Background(), AllocationCommit{
				RequestID:      "req-1",
				RequestVersion: 1,
				Systems:        []SystemClaim{{ID: 8, Version: 1}, {ID: 7, Version: 1}},
				Assignment:     model.Assignment{RequesterLoginID: "S1", RequesterName: "Asha", TimeSlot: "10:00-12:00"},
			})
			assert.ErrorIs(t, err, tc.check)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAllocationCommit_LockOrder(t *testing.T) {
	c := AllocationCommit{Systems: []SystemClaim{{ID: 8, Version: 3}, {ID: 2, Version: 1}, {ID: 7, Version: 5}}}

	assert.Equal(t, []SystemClaim{{ID: 2, Version: 1}, {ID: 7, Version: 5}, {ID: 8, Version: 3}}, c.lockOrder())
	assert.Equal(t, model.SystemIDs{8, 2, 7}, c.SystemIDs(), "the recorded allocation keeps request order")
	assert.Equal(t, 8, c.Systems[0].ID, "claims are not reordered in place")
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
