package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmate/internal/calculator"
	"github.com/mmynk/tripmate/internal/middleware"
	"github.com/mmynk/tripmate/internal/models"
	"github.com/mmynk/tripmate/internal/rpc"
	"github.com/mmynk/tripmate/internal/storage"
)

const BillServiceName = "tripmate.v1.BillService"

const (
	CreateBillProcedure          = "/" + BillServiceName + "/CreateBill"
	ListBillsProcedure           = "/" + BillServiceName + "/ListBills"
	JoinBillProcedure            = "/" + BillServiceName + "/JoinBill"
	AddExpenseProcedure          = "/" + BillServiceName + "/AddExpense"
	CalculateSettlementProcedure = "/" + BillServiceName + "/CalculateSettlement"
	CloseBillProcedure           = "/" + BillServiceName + "/CloseBill"
)

// listBillsLimit caps ListBills.
const listBillsLimit = 10

// BillInfo is the wire form of a bill.
type BillInfo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Currency     string   `json:"currency"`
	CreatorID    string   `json:"creator_id"`
	TotalAmount  float64  `json:"total_amount"`
	Participants []string `json:"participants"`
	Status       string   `json:"status"`
	CreatedAt    int64    `json:"created_at"`
}

// ExpenseInfo is the wire form of an expense.
type ExpenseInfo struct {
	ID          string  `json:"id"`
	BillID      string  `json:"bill_id"`
	PayerID     string  `json:"payer_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	CreatedAt   int64   `json:"created_at"`
}

// SettlementEntry is one participant's line in a settlement.
type SettlementEntry struct {
	Paid      float64 `json:"paid"`
	ShouldPay float64 `json:"shouldPay"`
	Balance   float64 `json:"balance"`
}

// TransferInfo suggests one payment that settles part of the bill.
type TransferInfo struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type CreateBillRequest struct {
	middleware.BodyCredentials
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

type CreateBillResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Bill    *BillInfo `json:"bill"`
}

type ListBillsRequest struct {
	middleware.BodyCredentials
}

type ListBillsResponse struct {
	Success bool        `json:"success"`
	Bills   []*BillInfo `json:"bills"`
}

type JoinBillRequest struct {
	middleware.BodyCredentials
	BillID string `json:"bill_id"`
}

type JoinBillResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	AlreadyJoined bool      `json:"already_joined"`
	Bill          *BillInfo `json:"bill"`
}

type AddExpenseRequest struct {
	middleware.BodyCredentials
	BillID      string  `json:"bill_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Date        string  `json:"date,omitempty"`
}

type AddExpenseResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Expense     *ExpenseInfo `json:"expense"`
	TotalAmount float64      `json:"total_amount"`
}

type CalculateSettlementRequest struct {
	middleware.BodyCredentials
	BillID string `json:"bill_id"`
}

type CalculateSettlementResponse struct {
	Success         bool                        `json:"success"`
	Message         string                      `json:"message"`
	BillID          string                      `json:"bill_id"`
	TotalAmount     float64                     `json:"total_amount"`
	PerPersonAmount float64                     `json:"per_person_amount"`
	Calculations    map[string]*SettlementEntry `json:"calculations"`
	Transfers       []*TransferInfo             `json:"transfers"`
}

type CloseBillRequest struct {
	middleware.BodyCredentials
	BillID string `json:"bill_id"`
}

type CloseBillResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Bill    *BillInfo `json:"bill"`
}

// BillService implements the bot-facing bill splitting procedures.
// Every procedure expects an authenticated caller in the context.
type BillService struct {
	store storage.BillStore
}

// NewBillService creates a new BillService with the given storage backend.
func NewBillService(store storage.BillStore) *BillService {
	return &BillService{store: store}
}

// Routes returns the service's procedures. opts should include the
// authentication interceptor.
func (s *BillService) Routes(opts ...connect.HandlerOption) []rpc.Route {
	return []rpc.Route{
		rpc.Unary(CreateBillProcedure, s.CreateBill, opts...),
		rpc.Unary(ListBillsProcedure, s.ListBills, opts...),
		rpc.Unary(JoinBillProcedure, s.JoinBill, opts...),
		rpc.Unary(AddExpenseProcedure, s.AddExpense, opts...),
		rpc.Unary(CalculateSettlementProcedure, s.CalculateSettlement, opts...),
		rpc.Unary(CloseBillProcedure, s.CloseBill, opts...),
	}
}

// CreateBill creates a bill with the caller as creator and only participant.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Msg.Title)
	if title == "" {
		return nil, invalidArgument("title is required")
	}

	bill := &models.Bill{
		Title:       title,
		Description: strings.TrimSpace(req.Msg.Description),
		Currency:    strings.ToUpper(strings.TrimSpace(req.Msg.Currency)),
		CreatorID:   userID,
		CreatedVia:  models.CreatedViaLineBot,
	}
	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, toConnectError("CreateBill", err)
	}

	slog.Info("Bill created", "bill_id", bill.ID, "creator_id", userID, "currency", bill.Currency)

	return connect.NewResponse(&CreateBillResponse{
		Success: true,
		Message: "Bill created",
		Bill:    billInfo(bill),
	}), nil
}

// ListBills returns the bills the caller participates in, newest first.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	bills, err := s.store.ListBillsByParticipant(ctx, userID, listBillsLimit)
	if err != nil {
		return nil, toConnectError("ListBills", err)
	}

	infos := make([]*BillInfo, len(bills))
	for i, b := range bills {
		infos[i] = billInfo(b)
	}

	return connect.NewResponse(&ListBillsResponse{Success: true, Bills: infos}), nil
}

// JoinBill adds the caller to a bill. Joining twice is not an error.
func (s *BillService) JoinBill(ctx context.Context, req *connect.Request[JoinBillRequest]) (*connect.Response[JoinBillResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.BillID == "" {
		return nil, invalidArgument("bill_id is required")
	}

	added, err := s.store.AddParticipant(ctx, req.Msg.BillID, userID)
	if err != nil {
		return nil, toConnectError("JoinBill", err)
	}

	bill, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError("JoinBill", err)
	}

	msg := "Joined bill"
	if !added {
		msg = "Already joined"
	} else {
		slog.Info("Participant joined", "bill_id", bill.ID, "user_id", userID, "participants", len(bill.Participants))
	}

	return connect.NewResponse(&JoinBillResponse{
		Success:       true,
		Message:       msg,
		AlreadyJoined: !added,
		Bill:          billInfo(bill),
	}), nil
}

// AddExpense records a payment by the caller and returns the new bill total.
func (s *BillService) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if msg.BillID == "" {
		return nil, invalidArgument("bill_id is required")
	}
	if math.IsNaN(msg.Amount) || math.IsInf(msg.Amount, 0) || msg.Amount <= 0 {
		return nil, invalidArgument("amount must be a positive number")
	}
	if msg.Amount > models.MaxExpenseAmount {
		return nil, invalidArgument("amount cannot exceed %.0f", models.MaxExpenseAmount)
	}
	if msg.Date != "" {
		if _, err := time.Parse(time.DateOnly, msg.Date); err != nil {
			return nil, invalidArgument("date must be YYYY-MM-DD")
		}
	}

	bill, err := s.store.GetBill(ctx, msg.BillID)
	if err != nil {
		return nil, toConnectError("AddExpense", err)
	}
	if !bill.HasParticipant(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you are not a participant of this bill"))
	}
	if bill.Status == models.BillClosed {
		return nil, connect.NewError(connect.CodeFailedPrecondition, storage.ErrBillClosed)
	}

	expense := &models.Expense{
		BillID:      bill.ID,
		PayerID:     userID,
		Amount:      msg.Amount,
		Description: strings.TrimSpace(msg.Description),
		Category:    strings.TrimSpace(msg.Category),
		Date:        msg.Date,
	}
	total, err := s.store.AddExpense(ctx, expense)
	if err != nil {
		return nil, toConnectError("AddExpense", err)
	}

	slog.Info("Expense added",
		"bill_id", bill.ID,
		"expense_id", expense.ID,
		"payer_id", userID,
		"amount", expense.Amount,
		"total", total,
	)

	return connect.NewResponse(&AddExpenseResponse{
		Success:     true,
		Message:     "Expense added",
		Expense:     expenseInfo(expense),
		TotalAmount: total,
	}), nil
}

// CalculateSettlement settles a bill by equal division.
func (s *BillService) CalculateSettlement(ctx context.Context, req *connect.Request[CalculateSettlementRequest]) (*connect.Response[CalculateSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.BillID == "" {
		return nil, invalidArgument("bill_id is required")
	}

	bill, err := s.participantBill(ctx, req.Msg.BillID, userID)
	if err != nil {
		return nil, err
	}

	_, settlement, transfers, err := s.settle(ctx, bill)
	if err != nil {
		return nil, toConnectError("CalculateSettlement", err)
	}

	calculations := make(map[string]*SettlementEntry, len(settlement.Entries))
	for id, e := range settlement.Entries {
		calculations[id] = &SettlementEntry{
			Paid:      e.Paid.InexactFloat64(),
			ShouldPay: e.ShouldPay.InexactFloat64(),
			Balance:   e.Balance.InexactFloat64(),
		}
	}
	infos := make([]*TransferInfo, len(transfers))
	for i, t := range transfers {
		infos[i] = &TransferInfo{From: t.From, To: t.To, Amount: t.Amount.Round(2).InexactFloat64()}
	}

	slog.Debug("Settlement calculated", "bill_id", bill.ID, "participants", len(calculations), "transfers", len(infos))

	return connect.NewResponse(&CalculateSettlementResponse{
		Success:         true,
		Message:         "Settlement calculated",
		BillID:          bill.ID,
		TotalAmount:     settlement.Total.InexactFloat64(),
		PerPersonAmount: settlement.PerPerson.InexactFloat64(),
		Calculations:    calculations,
		Transfers:       infos,
	}), nil
}

// CloseBill marks a bill closed. Only the creator may close it.
func (s *BillService) CloseBill(ctx context.Context, req *connect.Request[CloseBillRequest]) (*connect.Response[CloseBillResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.BillID == "" {
		return nil, invalidArgument("bill_id is required")
	}

	bill, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError("CloseBill", err)
	}
	if bill.CreatorID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the bill creator can close it"))
	}

	if bill.Status != models.BillClosed {
		if err := s.store.SetBillStatus(ctx, bill.ID, models.BillClosed); err != nil {
			return nil, toConnectError("CloseBill", err)
		}
		bill.Status = models.BillClosed
		slog.Info("Bill closed", "bill_id", bill.ID, "total", bill.TotalAmount)
	}

	return connect.NewResponse(&CloseBillResponse{
		Success: true,
		Message: "Bill closed",
		Bill:    billInfo(bill),
	}), nil
}

// participantBill loads a bill the caller participates in.
func (s *BillService) participantBill(ctx context.Context, billID, userID string) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, toConnectError("GetBill", err)
	}
	if !bill.HasParticipant(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you are not a participant of this bill"))
	}
	return bill, nil
}

// settle loads the bill's expenses and computes its settlement and
// suggested transfers.
func (s *BillService) settle(ctx context.Context, bill *models.Bill) ([]*models.Expense, *calculator.Settlement, []calculator.Transfer, error) {
	expenses, err := s.store.ListExpenses(ctx, bill.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	payments := make([]calculator.Payment, len(expenses))
	for i, e := range expenses {
		payments[i] = calculator.Payment{PayerID: e.PayerID, Amount: e.Amount}
	}

	if err := calculator.VerifyTotal(bill.TotalAmount, payments); err != nil {
		return nil, nil, nil, fmt.Errorf("bill %s: %w", bill.ID, err)
	}

	settlement, err := calculator.ComputeSettlement(calculator.BillForSettlement{
		Total:        bill.TotalAmount,
		Participants: bill.Participants,
	}, payments)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bill %s: %w", bill.ID, err)
	}

	return expenses, settlement, calculator.SuggestTransfers(settlement), nil
}

func billInfo(b *models.Bill) *BillInfo {
	return &BillInfo{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		Currency:     b.Currency,
		CreatorID:    b.CreatorID,
		TotalAmount:  b.TotalAmount,
		Participants: b.Participants,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
	}
}

func expenseInfo(e *models.Expense) *ExpenseInfo {
	return &ExpenseInfo{
		ID:          e.ID,
		BillID:      e.BillID,
		PayerID:     e.PayerID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}
