package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/pkg/api"
)

// CreateGroup starts a new group with the caller as its only active member.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	s.logger.Info("CreateGroup request received", "name", req.Msg.Name)

	joinKey, hash, err := s.authenticator.Issue()
	if err != nil {
		s.logger.Error("Failed to issue join key", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	snap, err := s.gateway.CreateGroup(ctx, req.Msg.Name, req.Msg.FounderName, req.Msg.FounderAvatarURL, hash)
	if err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	founder := snap.Members()[0]
	token, err := s.jwtManager.Generate(snap.ID(), founder.ID)
	if err != nil {
		s.logger.Error("Failed to generate token", "group_id", snap.ID(), "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.publish(ctx, snap.ID(), &ledger.Result{Snapshot: snap, Entries: snap.Activity()})
	s.logger.Info("Group created", "group_id", snap.ID(), "member_id", founder.ID)

	return connect.NewResponse(&api.CreateGroupResponse{
		Group:    toAPIGroup(snap),
		JoinKey:  joinKey,
		MemberID: founder.ID,
		Token:    token,
	}), nil
}

// JoinGroup files a join request for a caller holding the group's join key.
// The returned token belongs to a pending member, who can read the group but
// cannot act until admitted.
func (s *LedgerService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	s.logger.Info("JoinGroup request received", "group_id", req.Msg.GroupID)

	if req.Msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group id required"))
	}

	snap, err := s.gateway.Snapshot(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.authenticator.Verify(snap.JoinKeyHash(), req.Msg.JoinKey); err != nil {
		s.logger.Warn("JoinGroup rejected", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	res, err := s.gateway.Apply(ctx, req.Msg.GroupID, "", ledger.AddMember{
		DisplayName: req.Msg.Name,
		AvatarURL:   req.Msg.AvatarURL,
	})
	if err != nil {
		s.logger.Warn("JoinGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(req.Msg.GroupID, res.CreatedID)
	if err != nil {
		s.logger.Error("Failed to generate token", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.publish(ctx, req.Msg.GroupID, res)
	s.logger.Info("Join requested", "group_id", req.Msg.GroupID, "member_id", res.CreatedID)

	return connect.NewResponse(&api.JoinGroupResponse{
		Group:    toAPIGroup(res.Snapshot),
		MemberID: res.CreatedID,
		Token:    token,
	}), nil
}
