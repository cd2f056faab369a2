package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/google/uuid"
)

// EventType is the kind of an audit record.
type EventType string

const (
	AccountCreated EventType = "ACCOUNT_CREATED"
	LoggedIn       EventType = "LOGGED_IN"
	EmailVerified  EventType = "EMAIL_VERIFIED"
	LoggedOut      EventType = "LOGGED_OUT"
)

// Event is an append-only audit record. It is written inside the same
// transaction as the state change it describes and never read back here.
type Event struct {
	UserID    string
	Type      EventType
	IPAddress string
	UserAgent string
}

// Recorder appends audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
	now  func() time.Time
}

// NewRecorder binds a recorder to db, which is usually a transaction.
func NewRecorder(db database.DBTX) Recorder {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:  time.Now,
	}
}

func (r *repository) Record(ctx context.Context, e Event) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate audit id: %w", err)
	}

	query, args, err := r.psql.Insert("audit_logs").
		Columns("id", "user_id", "event", "ip_address", "user_agent", "created_at").
		Values(id.String(), e.UserID, string(e.Type), nullable(e.IPAddress), nullable(e.UserAgent), r.now()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit event %s: %w", e.Type, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
