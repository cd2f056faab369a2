package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr bool
	}{
		{
			name:  "inserts event with request metadata",
			event: Event{UserID: "u1", Type: LoggedIn, IPAddress: "10.0.0.1", UserAgent: "curl/8"},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO audit_logs`).
					WithArgs(pgxmock.AnyArg(), "u1", "LOGGED_IN", "10.0.0.1", "curl/8", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name:  "empty metadata is stored as null",
			event: Event{UserID: "u1", Type: AccountCreated},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO audit_logs`).
					WithArgs(pgxmock.AnyArg(), "u1", "ACCOUNT_CREATED", nil, nil, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name:  "store error is returned",
			event: Event{UserID: "u1", Type: LoggedOut},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setup(mock)
			err = NewRecorder(mock).Record(context.Background(), tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
