package conversation

import (
	"context"
	"testing"

	"heist/config"
	"heist/models"
	"heist/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	texts []string
	err   error
}

func (b *recordingBroadcaster) Broadcast(ctx context.Context, fromID int64, text string) error {
	b.texts = append(b.texts, text)
	return b.err
}

type flowMocks struct {
	ledger      *service.MockLedgerService
	permissions *service.MockPermissionService
	keywords    *service.MockKeywordService
	broadcaster *recordingBroadcaster
}

func createTestFlowMachine(t *testing.T) (*Machine, *flowMocks) {
	t.Helper()
	mocks := &flowMocks{
		ledger:      new(service.MockLedgerService),
		permissions: new(service.MockPermissionService),
		keywords:    new(service.MockKeywordService),
		broadcaster: &recordingBroadcaster{},
	}
	cfg := config.NewTestConfig()
	m, err := NewMachine(Handlers(mocks.ledger, mocks.permissions, mocks.keywords, mocks.broadcaster, cfg.InvestmentMinimum), cfg)
	require.NoError(t, err)
	return m, mocks
}

func dispatch(t *testing.T, m *Machine, input string) Outcome {
	t.Helper()
	out, err := m.Dispatch(context.Background(), testActor, testScope, input)
	require.NoError(t, err)
	return out
}

func begin(t *testing.T, m *Machine, state State, payload Payload) {
	t.Helper()
	_, err := m.Begin(testActor, testScope, state, payload)
	require.NoError(t, err)
}

func TestBankingFlow_OpenAccount(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	begin(t, m, BankingWaitingBankSelection, Payload{KeyUsername: "alice"})

	out := dispatch(t, m, "Atlantis")
	assert.Equal(t, Advanced, out.Kind)
	assert.True(t, service.KindOf(out.Err) == service.KindValidation)

	mocks.ledger.On("OpenAccount", mock.Anything, testActor, "alice", "Iron Crown").
		Return(&models.Account{ActorID: testActor, Cash: 1000, BankName: "Iron Crown"}, true, nil)

	out = dispatch(t, m, "2")
	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "Iron Crown")
	mocks.ledger.AssertExpectations(t)
}

func TestBankingFlow_Transfer(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	begin(t, m, BankingWaitingTransferUser, nil)

	out := dispatch(t, m, "<@111111>")
	assert.Equal(t, Advanced, out.Kind)
	assert.Equal(t, BankingWaitingTransferUser, out.State, "self transfer is rejected in place")

	out = dispatch(t, m, "<@!222222>")
	assert.Equal(t, BankingWaitingTransferAmount, out.State)

	mocks.ledger.On("Transfer", mock.Anything, testActor, int64(222222), int64(2000)).
		Return(nil, service.ErrInsufficientFunds).Once()
	out = dispatch(t, m, "2,000")
	assert.Equal(t, Advanced, out.Kind)
	assert.Equal(t, BankingWaitingTransferAmount, out.State)

	mocks.ledger.On("Transfer", mock.Anything, testActor, int64(222222), int64(100)).
		Return(&models.TransferResult{Amount: 100, SenderCash: 400, ReceiverUsername: "bob"}, nil).Once()
	out = dispatch(t, m, "100")
	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "bob")
}

func TestBankingFlow_DepositAndWithdraw(t *testing.T) {
	m, mocks := createTestFlowMachine(t)

	mocks.ledger.On("Deposit", mock.Anything, testActor, int64(300)).
		Return(&models.BankMoveResult{Amount: 300, Cash: 700, Bank: 300}, nil)
	begin(t, m, BankingWaitingDepositAmount, nil)
	out := dispatch(t, m, "-5")
	assert.Equal(t, Advanced, out.Kind)
	out = dispatch(t, m, "300")
	assert.Equal(t, Completed, out.Kind)

	mocks.ledger.On("Withdraw", mock.Anything, testActor, int64(50)).
		Return(nil, service.ErrNotRegistered)
	begin(t, m, BankingWaitingWithdrawAmount, nil)
	out = dispatch(t, m, "50")
	assert.Equal(t, Aborted, out.Kind)
	assert.Equal(t, service.KindNotRegistered, service.KindOf(out.Err))
}

func TestPropertyFlow(t *testing.T) {
	m, mocks := createTestFlowMachine(t)

	begin(t, m, PropertyWaitingChoice, nil)
	out := dispatch(t, m, "villa")
	assert.Equal(t, PropertyWaitingConfirmation, out.State)
	assert.Contains(t, out.Reply, "150000")

	out = dispatch(t, m, "maybe")
	assert.Equal(t, Advanced, out.Kind)

	out = dispatch(t, m, "no")
	assert.Equal(t, Aborted, out.Kind)
	mocks.ledger.AssertNotCalled(t, "Spend", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	mocks.ledger.On("Spend", mock.Anything, testActor, int64(20000), models.CategoryPropertyPurchase, "Bought Apartment", mock.Anything).
		Return(int64(5000), nil)
	begin(t, m, PropertyWaitingChoice, nil)
	dispatch(t, m, "1")
	out = dispatch(t, m, "yes")
	assert.Equal(t, Completed, out.Kind)
	mocks.ledger.AssertExpectations(t)
}

func TestStocksFlow(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.ledger.On("Spend", mock.Anything, testActor, int64(1000), models.CategoryStockPurchase, mock.Anything, mock.Anything).
		Return(int64(0), nil)

	begin(t, m, StocksWaitingSymbol, nil)
	out := dispatch(t, m, "XYZ")
	assert.Equal(t, StocksWaitingSymbol, out.State)
	out = dispatch(t, m, "gld")
	assert.Equal(t, StocksWaitingBuyQuantity, out.State)
	out = dispatch(t, m, "1001")
	assert.Equal(t, StocksWaitingBuyQuantity, out.State)
	out = dispatch(t, m, "4")
	assert.Equal(t, Completed, out.Kind)

	metadata := mocks.ledger.Calls[0].Arguments.Get(5).(map[string]any)
	assert.Equal(t, "GLD", metadata["symbol"])
	assert.Equal(t, int64(4), metadata["quantity"])
}

func TestInvestmentFlow(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.ledger.On("Spend", mock.Anything, testActor, int64(500), models.CategoryInvestment, mock.Anything, map[string]any{"duration_days": int64(7)}).
		Return(int64(500), nil)

	begin(t, m, InvestmentWaitingAmount, nil)
	out := dispatch(t, m, "99")
	assert.Equal(t, InvestmentWaitingAmount, out.State, "below the minimum")
	out = dispatch(t, m, "500")
	assert.Equal(t, InvestmentWaitingDuration, out.State)
	out = dispatch(t, m, "31")
	assert.Equal(t, InvestmentWaitingDuration, out.State)
	out = dispatch(t, m, "7")
	assert.Equal(t, Completed, out.Kind)
	mocks.ledger.AssertExpectations(t)
}

func TestFarmAndCastleFlows(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.ledger.On("Spend", mock.Anything, testActor, int64(500), models.CategoryFarmPlanting, mock.Anything, mock.Anything).
		Return(int64(500), nil)
	mocks.ledger.On("Spend", mock.Anything, testActor, CastleUpgradeCost, models.CategoryCastleUpgrade, mock.Anything, mock.Anything).
		Return(int64(0), nil)

	begin(t, m, FarmWaitingCropQuantity, Payload{KeyCrop: "wheat"})
	out := dispatch(t, m, "0")
	assert.Equal(t, FarmWaitingCropQuantity, out.State)
	out = dispatch(t, m, "10")
	assert.Equal(t, Completed, out.Kind)

	begin(t, m, CastleWaitingUpgradeConfirmation, nil)
	out = dispatch(t, m, "نعم")
	assert.Equal(t, Completed, out.Kind)
	mocks.ledger.AssertExpectations(t)
}

func TestTheftFlow(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.ledger.On("AttemptTheft", mock.Anything, testActor, int64(222222)).
		Return(nil, service.ErrNoFundsToSteal).Once()
	mocks.ledger.On("AttemptTheft", mock.Anything, testActor, int64(333333)).
		Return(&models.TheftResult{Success: true, Amount: 50, Chance: 70, Roll: 12}, nil).Once()

	begin(t, m, TheftWaitingTarget, nil)
	out := dispatch(t, m, "<@222222>")
	assert.Equal(t, Aborted, out.Kind)
	assert.Equal(t, service.KindNoFundsToSteal, service.KindOf(out.Err))

	begin(t, m, TheftWaitingTarget, nil)
	out = dispatch(t, m, "333333")
	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "stole 50")
}

func TestAdminFlow_Broadcast(t *testing.T) {
	m, mocks := createTestFlowMachine(t)

	mocks.permissions.On("HasPermission", testActor, models.LevelMaster, (*int64)(nil)).Return(false).Once()
	begin(t, m, AdminWaitingBroadcast, nil)
	out := dispatch(t, m, "hello all")
	assert.Equal(t, Aborted, out.Kind)
	assert.Equal(t, service.KindPermissionDenied, service.KindOf(out.Err))
	assert.Empty(t, mocks.broadcaster.texts)

	mocks.permissions.On("HasPermission", testActor, models.LevelMaster, (*int64)(nil)).Return(true)
	begin(t, m, AdminWaitingBroadcast, nil)
	out = dispatch(t, m, "hello all")
	assert.Equal(t, Completed, out.Kind)
	assert.Equal(t, []string{"hello all"}, mocks.broadcaster.texts)
}

func TestAdminFlow_GrantAndRevoke(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.permissions.On("Grant", mock.Anything, testActor, testScope, int64(5), models.RoleModerator).Return(true, nil)
	mocks.permissions.On("Revoke", mock.Anything, testActor, testScope, int64(5), models.RoleModerator).Return(false, nil)

	begin(t, m, AdminWaitingUserID, Payload{KeyAction: ActionGrant, KeyRole: string(models.RoleModerator)})
	out := dispatch(t, m, "<@5>")
	assert.Equal(t, Completed, out.Kind)
	assert.Equal(t, "<@5> is now a moderator.", out.Reply)

	begin(t, m, AdminWaitingUserID, Payload{KeyAction: ActionRevoke, KeyRole: string(models.RoleModerator)})
	out = dispatch(t, m, "5")
	assert.Equal(t, "<@5> was not a moderator.", out.Reply)
}

func TestCustomReplyFlow_NonMasterUsesOwnScope(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.permissions.On("HasPermission", testActor, models.LevelMaster, (*int64)(nil)).Return(false)
	scope := testScope
	mocks.keywords.On("Upsert", mock.Anything, "hello", "Hi there!", &scope, testActor).
		Return(&models.KeywordReply{Trigger: "hello", ScopeID: &scope}, nil)

	begin(t, m, CustomReplyWaitingTrigger, nil)
	out := dispatch(t, m, "x")
	assert.Equal(t, CustomReplyWaitingTrigger, out.State)
	out = dispatch(t, m, "  HELLO ")
	assert.Equal(t, CustomReplyWaitingResponse, out.State)
	out = dispatch(t, m, "Hi there!")
	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "in this chat")
	mocks.keywords.AssertExpectations(t)
}

func TestCustomReplyFlow_MasterPicksScope(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.permissions.On("HasPermission", testActor, models.LevelMaster, (*int64)(nil)).Return(true)
	mocks.keywords.On("Upsert", mock.Anything, "rules", "Be nice", (*int64)(nil), testActor).
		Return(&models.KeywordReply{Trigger: "rules"}, nil)

	begin(t, m, CustomReplyWaitingTrigger, nil)
	dispatch(t, m, "rules")
	out := dispatch(t, m, "Be nice")
	assert.Equal(t, CustomReplyWaitingScope, out.State)
	out = dispatch(t, m, "somewhere")
	assert.Equal(t, CustomReplyWaitingScope, out.State)
	out = dispatch(t, m, "global")
	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "everywhere")
}

func TestCustomReplyFlow_DirectMessageIsGlobal(t *testing.T) {
	m, mocks := createTestFlowMachine(t)
	mocks.keywords.On("Upsert", mock.Anything, "rules", "Be nice", (*int64)(nil), testActor).
		Return(&models.KeywordReply{Trigger: "rules"}, nil)
	ctx := context.Background()

	_, err := m.Begin(testActor, 0, CustomReplyWaitingTrigger, nil)
	require.NoError(t, err)
	_, err = m.Dispatch(ctx, testActor, 0, "rules")
	require.NoError(t, err)
	out, err := m.Dispatch(ctx, testActor, 0, "Be nice")
	require.NoError(t, err)

	assert.Equal(t, Completed, out.Kind)
	assert.Contains(t, out.Reply, "everywhere")
	mocks.keywords.AssertExpectations(t)
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"123", 123, false},
		{"<@123>", 123, false},
		{"<@!123>", 123, false},
		{"@bob", 0, true},
		{"-4", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUserID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
