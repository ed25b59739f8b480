package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the service.
const LedgerServiceName = "expensekey.v1.LedgerService"

// Procedure paths.
const (
	LedgerServiceCreateGroupProcedure            = "/expensekey.v1.LedgerService/CreateGroup"
	LedgerServiceJoinGroupProcedure              = "/expensekey.v1.LedgerService/JoinGroup"
	LedgerServiceGetGroupProcedure               = "/expensekey.v1.LedgerService/GetGroup"
	LedgerServiceGetBalancesProcedure            = "/expensekey.v1.LedgerService/GetBalances"
	LedgerServiceAddExpenseProcedure             = "/expensekey.v1.LedgerService/AddExpense"
	LedgerServiceApproveExpenseProcedure         = "/expensekey.v1.LedgerService/ApproveExpense"
	LedgerServiceRequestExpenseDeletionProcedure = "/expensekey.v1.LedgerService/RequestExpenseDeletion"
	LedgerServiceApproveExpenseDeletionProcedure = "/expensekey.v1.LedgerService/ApproveExpenseDeletion"
	LedgerServiceAddMemberProcedure              = "/expensekey.v1.LedgerService/AddMember"
	LedgerServiceApproveMemberProcedure          = "/expensekey.v1.LedgerService/ApproveMember"
	LedgerServiceUpdateProfileProcedure          = "/expensekey.v1.LedgerService/UpdateProfile"
)

// PublicProcedures need no token.
var PublicProcedures = map[string]bool{
	LedgerServiceCreateGroupProcedure: true,
	LedgerServiceJoinGroupProcedure:   true,
}

// LedgerServiceHandler is implemented by the server.
type LedgerServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[MutationResponse], error)
	ApproveExpense(context.Context, *connect.Request[ApproveExpenseRequest]) (*connect.Response[MutationResponse], error)
	RequestExpenseDeletion(context.Context, *connect.Request[RequestExpenseDeletionRequest]) (*connect.Response[MutationResponse], error)
	ApproveExpenseDeletion(context.Context, *connect.Request[ApproveExpenseDeletionRequest]) (*connect.Response[MutationResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[MutationResponse], error)
	ApproveMember(context.Context, *connect.Request[ApproveMemberRequest]) (*connect.Response[MutationResponse], error)
	UpdateProfile(context.Context, *connect.Request[UpdateProfileRequest]) (*connect.Response[MutationResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the path to
// mount it on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceCreateGroupProcedure, connect.NewUnaryHandler(LedgerServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(LedgerServiceJoinGroupProcedure, connect.NewUnaryHandler(LedgerServiceJoinGroupProcedure, svc.JoinGroup, opts...))
	mux.Handle(LedgerServiceGetGroupProcedure, connect.NewUnaryHandler(LedgerServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(LedgerServiceGetBalancesProcedure, connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(LedgerServiceAddExpenseProcedure, connect.NewUnaryHandler(LedgerServiceAddExpenseProcedure, svc.AddExpense, opts...))
	mux.Handle(LedgerServiceApproveExpenseProcedure, connect.NewUnaryHandler(LedgerServiceApproveExpenseProcedure, svc.ApproveExpense, opts...))
	mux.Handle(LedgerServiceRequestExpenseDeletionProcedure, connect.NewUnaryHandler(LedgerServiceRequestExpenseDeletionProcedure, svc.RequestExpenseDeletion, opts...))
	mux.Handle(LedgerServiceApproveExpenseDeletionProcedure, connect.NewUnaryHandler(LedgerServiceApproveExpenseDeletionProcedure, svc.ApproveExpenseDeletion, opts...))
	mux.Handle(LedgerServiceAddMemberProcedure, connect.NewUnaryHandler(LedgerServiceAddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(LedgerServiceApproveMemberProcedure, connect.NewUnaryHandler(LedgerServiceApproveMemberProcedure, svc.ApproveMember, opts...))
	mux.Handle(LedgerServiceUpdateProfileProcedure, connect.NewUnaryHandler(LedgerServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// Client calls a LedgerService over Connect.
type Client struct {
	createGroup            *connect.Client[CreateGroupRequest, CreateGroupResponse]
	joinGroup              *connect.Client[JoinGroupRequest, JoinGroupResponse]
	getGroup               *connect.Client[GetGroupRequest, GetGroupResponse]
	getBalances            *connect.Client[GetBalancesRequest, GetBalancesResponse]
	addExpense             *connect.Client[AddExpenseRequest, MutationResponse]
	approveExpense         *connect.Client[ApproveExpenseRequest, MutationResponse]
	requestExpenseDeletion *connect.Client[RequestExpenseDeletionRequest, MutationResponse]
	approveExpenseDeletion *connect.Client[ApproveExpenseDeletionRequest, MutationResponse]
	addMember              *connect.Client[AddMemberRequest, MutationResponse]
	approveMember          *connect.Client[ApproveMemberRequest, MutationResponse]
	updateProfile          *connect.Client[UpdateProfileRequest, MutationResponse]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		createGroup:            connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+LedgerServiceCreateGroupProcedure, opts...),
		joinGroup:              connect.NewClient[JoinGroupRequest, JoinGroupResponse](httpClient, baseURL+LedgerServiceJoinGroupProcedure, opts...),
		getGroup:               connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+LedgerServiceGetGroupProcedure, opts...),
		getBalances:            connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		addExpense:             connect.NewClient[AddExpenseRequest, MutationResponse](httpClient, baseURL+LedgerServiceAddExpenseProcedure, opts...),
		approveExpense:         connect.NewClient[ApproveExpenseRequest, MutationResponse](httpClient, baseURL+LedgerServiceApproveExpenseProcedure, opts...),
		requestExpenseDeletion: connect.NewClient[RequestExpenseDeletionRequest, MutationResponse](httpClient, baseURL+LedgerServiceRequestExpenseDeletionProcedure, opts...),
		approveExpenseDeletion: connect.NewClient[ApproveExpenseDeletionRequest, MutationResponse](httpClient, baseURL+LedgerServiceApproveExpenseDeletionProcedure, opts...),
		addMember:              connect.NewClient[AddMemberRequest, MutationResponse](httpClient, baseURL+LedgerServiceAddMemberProcedure, opts...),
		approveMember:          connect.NewClient[ApproveMemberRequest, MutationResponse](httpClient, baseURL+LedgerServiceApproveMemberProcedure, opts...),
		updateProfile:          connect.NewClient[UpdateProfileRequest, MutationResponse](httpClient, baseURL+LedgerServiceUpdateProfileProcedure, opts...),
	}
}

func (c *Client) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *Client) JoinGroup(ctx context.Context, req *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *Client) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *Client) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *Client) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[MutationResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *Client) ApproveExpense(ctx context.Context, req *connect.Request[ApproveExpenseRequest]) (*connect.Response[MutationResponse], error) {
	return c.approveExpense.CallUnary(ctx, req)
}

func (c *Client) RequestExpenseDeletion(ctx context.Context, req *connect.Request[RequestExpenseDeletionRequest]) (*connect.Response[MutationResponse], error) {
	return c.requestExpenseDeletion.CallUnary(ctx, req)
}

func (c *Client) ApproveExpenseDeletion(ctx context.Context, req *connect.Request[ApproveExpenseDeletionRequest]) (*connect.Response[MutationResponse], error) {
	return c.approveExpenseDeletion.CallUnary(ctx, req)
}

func (c *Client) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[MutationResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *Client) ApproveMember(ctx context.Context, req *connect.Request[ApproveMemberRequest]) (*connect.Response[MutationResponse], error) {
	return c.approveMember.CallUnary(ctx, req)
}

func (c *Client) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[MutationResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}
