package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// storeErr maps a repository error to NOT_FOUND for resource or to STORE_ERROR.
// An id the database cannot parse names no row, so it is NOT_FOUND as well.
func storeErr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) || hasPgCode(err, invalidTextRepresentation) {
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	}
	return errorutil.NewStoreError(err)
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, uniqueViolation)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// requireFields returns a validation error listing every blank field.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if blank(value) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errorutil.NewValidationError("missing required fields", map[string]any{"fields": missing})
}

// eventPublisher stamps and publishes events. Failures are logged and swallowed
// so a committed write is never reported as failed.
type eventPublisher struct {
	publisher events.Publisher
	logger    *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("publish event failed",
			zap.String("event", string(event.Type)),
			zap.String("room", event.Room),
			zap.Error(err))
	}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
