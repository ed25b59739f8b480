package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/expensekey/internal/calculator"
	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/pkg/api"
)

// snapshotFor loads the caller's group and checks that the caller is one of its members.
func (s *LedgerService) snapshotFor(ctx context.Context) (*ledger.Snapshot, error) {
	groupID, memberID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.gateway.Snapshot(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, ok := snap.Member(memberID); !ok {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("%s is not a member of group %s", memberID, groupID))
	}
	return snap, nil
}

// GetGroup returns the caller's group.
func (s *LedgerService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	snap, err := s.snapshotFor(ctx)
	if err != nil {
		s.logger.Warn("GetGroup failed", "error", err)
		return nil, err
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(snap)}), nil
}

// GetBalances returns per-member totals over approved expenses and the
// payments that would settle them.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	snap, err := s.snapshotFor(ctx)
	if err != nil {
		s.logger.Warn("GetBalances failed", "error", err)
		return nil, err
	}

	stats, err := snap.MemberStats()
	if err != nil {
		s.logger.Error("Balance calculation failed", "group_id", snap.ID(), "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	balances := make(map[string]int64, len(stats))
	resp := &api.GetBalancesResponse{Balances: make([]api.MemberBalance, len(stats))}
	for i, st := range stats {
		balances[st.MemberID] = st.NetBalance
		resp.Balances[i] = api.MemberBalance{
			MemberID:   st.MemberID,
			TotalPaid:  st.TotalPaid,
			TotalShare: st.TotalShare,
			NetBalance: st.NetBalance,
		}
	}
	resp.Settlements = toAPISettlements(calculator.SimplifyDebts(balances))

	return connect.NewResponse(resp), nil
}

// AddMember proposes a new member on behalf of the caller.
func (s *LedgerService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.AddMember{
		DisplayName: req.Msg.Name,
		AvatarURL:   req.Msg.AvatarURL,
	})
}

// ApproveMember records the caller's vote to admit a pending member.
func (s *LedgerService) ApproveMember(ctx context.Context, req *connect.Request[api.ApproveMemberRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.ApproveMember{MemberID: req.Msg.MemberID})
}

// UpdateProfile changes the caller's own display name or avatar.
func (s *LedgerService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.MutationResponse], error) {
	return s.apply(ctx, ledger.UpdateProfile{
		DisplayName: req.Msg.Name,
		AvatarURL:   req.Msg.AvatarURL,
	})
}
