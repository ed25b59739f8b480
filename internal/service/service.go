// Package service exposes the ledger gateway as the Connect LedgerService.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/expensekey/internal/auth"
	"github.com/mmynk/expensekey/internal/events"
	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/internal/middleware"
	"github.com/mmynk/expensekey/pkg/api"
)

const publishTimeout = 5 * time.Second

// LedgerService implements api.LedgerServiceHandler.
type LedgerService struct {
	gateway       *ledger.Gateway
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	publisher     events.Publisher
	logger        *slog.Logger
}

// NewLedgerService creates a new LedgerService. A nil publisher drops activity events.
func NewLedgerService(gateway *ledger.Gateway, authenticator auth.Authenticator, jwtManager *auth.JWTManager, publisher events.Publisher, logger *slog.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &LedgerService{
		gateway:       gateway,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		publisher:     publisher,
		logger:        logger,
	}
}

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// identity returns the group and member carried by the request token.
func identity(ctx context.Context) (string, string, error) {
	groupID := middleware.GetGroupID(ctx)
	memberID := middleware.GetMemberID(ctx)
	if groupID == "" || memberID == "" {
		return "", "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return groupID, memberID, nil
}

// apply runs one intent as the authenticated member and publishes what it recorded.
func (s *LedgerService) apply(ctx context.Context, intent ledger.Intent) (*connect.Response[api.MutationResponse], error) {
	groupID, memberID, err := identity(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.Apply(ctx, groupID, memberID, intent)
	if err != nil {
		s.logger.Warn(intent.Name()+" rejected", "group_id", groupID, "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}

	s.publish(ctx, groupID, res)
	s.logger.Info(intent.Name()+" applied",
		"group_id", groupID,
		"member_id", memberID,
		"changed", res.Changed,
	)

	return connect.NewResponse(&api.MutationResponse{
		Changed:   res.Changed,
		CreatedID: res.CreatedID,
		Group:     toAPIGroup(res.Snapshot),
	}), nil
}

// publish forwards committed activity. Failures are logged and never reach the caller.
func (s *LedgerService) publish(ctx context.Context, groupID string, res *ledger.Result) {
	if len(res.Entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishActivity(ctx, groupID, res.Entries); err != nil {
		s.logger.Error("Failed to publish activity", "group_id", groupID, "entries", len(res.Entries), "error", err)
	}
}

// toConnectError maps ledger failures onto Connect status codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ledger.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, ledger.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ledger.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, auth.ErrInvalidJoinKey):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, ledger.ErrSaveFailed), errors.Is(err, ledger.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
