package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/pkg/api"
)

// AddExpense records an expense paid by PayerID. The payer's approval is implied.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.AddExpense{
		Description: req.Msg.Description,
		Amount:      req.Msg.Amount,
		PayerID:     req.Msg.PayerID,
		SplitWith:   req.Msg.SplitWith,
	})
}

func (s *LedgerService) ApproveExpense(ctx context.Context, req *connect.Request[api.ApproveExpenseRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.ApproveExpense{ExpenseID: req.Msg.ExpenseID})
}

func (s *LedgerService) RequestExpenseDeletion(ctx context.Context, req *connect.Request[api.RequestExpenseDeletionRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.RequestExpenseDeletion{ExpenseID: req.Msg.ExpenseID})
}

func (s *LedgerService) ApproveExpenseDeletion(ctx context.Context, req *connect.Request[api.ApproveExpenseDeletionRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.ApproveExpenseDeletion{ExpenseID: req.Msg.ExpenseID})
}
