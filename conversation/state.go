// Package conversation sequences multi-turn interactions per actor and scope.
package conversation

import (
	"fmt"
	"maps"
	"time"
)

// Namespace groups the states of one guided flow
type Namespace string

const (
	NamespaceBanking     Namespace = "banking"
	NamespaceProperty    Namespace = "property"
	NamespaceTheft       Namespace = "theft"
	NamespaceStocks      Namespace = "stocks"
	NamespaceInvestment  Namespace = "investment"
	NamespaceFarm        Namespace = "farm"
	NamespaceCastle      Namespace = "castle"
	NamespaceAdmin       Namespace = "admin"
	NamespaceCustomReply Namespace = "custom_reply"
)

// Namespaces lists every namespace; NewMachine requires a handler for each
var Namespaces = []Namespace{
	NamespaceBanking,
	NamespaceProperty,
	NamespaceTheft,
	NamespaceStocks,
	NamespaceInvestment,
	NamespaceFarm,
	NamespaceCastle,
	NamespaceAdmin,
	NamespaceCustomReply,
}

// State is one step of a flow awaiting input
type State string

const (
	BankingWaitingBankSelection      State = "banking.waiting_bank_selection"
	BankingWaitingDepositAmount      State = "banking.waiting_deposit_amount"
	BankingWaitingWithdrawAmount     State = "banking.waiting_withdraw_amount"
	BankingWaitingTransferUser       State = "banking.waiting_transfer_user"
	BankingWaitingTransferAmount     State = "banking.waiting_transfer_amount"
	PropertyWaitingChoice            State = "property.waiting_choice"
	PropertyWaitingConfirmation      State = "property.waiting_confirmation"
	TheftWaitingTarget               State = "theft.waiting_target"
	StocksWaitingSymbol              State = "stocks.waiting_symbol"
	StocksWaitingBuyQuantity         State = "stocks.waiting_buy_quantity"
	InvestmentWaitingAmount          State = "investment.waiting_amount"
	InvestmentWaitingDuration        State = "investment.waiting_duration"
	FarmWaitingCropQuantity          State = "farm.waiting_crop_quantity"
	CastleWaitingUpgradeConfirmation State = "castle.waiting_upgrade_confirmation"
	AdminWaitingBroadcast            State = "admin.waiting_broadcast"
	AdminWaitingUserID               State = "admin.waiting_user_id"
	CustomReplyWaitingTrigger        State = "custom_reply.waiting_trigger"
	CustomReplyWaitingResponse       State = "custom_reply.waiting_response"
	CustomReplyWaitingScope          State = "custom_reply.waiting_scope"
)

type stateInfo struct {
	namespace Namespace
	prompt    string
}

var states = map[State]stateInfo{
	BankingWaitingBankSelection:      {NamespaceBanking, "Pick a bank for your account:\n" + bankMenu()},
	BankingWaitingDepositAmount:      {NamespaceBanking, "How much cash do you want to deposit?"},
	BankingWaitingWithdrawAmount:     {NamespaceBanking, "How much do you want to withdraw from the bank?"},
	BankingWaitingTransferUser:       {NamespaceBanking, "Who should receive the money? Send a mention or user ID."},
	BankingWaitingTransferAmount:     {NamespaceBanking, "How much do you want to send?"},
	PropertyWaitingChoice:            {NamespaceProperty, "Which property do you want to buy?\n" + propertyMenu()},
	PropertyWaitingConfirmation:      {NamespaceProperty, "Confirm the purchase? (yes/no)"},
	TheftWaitingTarget:               {NamespaceTheft, "Who do you want to rob? Send a mention or user ID."},
	StocksWaitingSymbol:              {NamespaceStocks, "Which stock do you want to buy?\n" + stockMenu()},
	StocksWaitingBuyQuantity:         {NamespaceStocks, "How many shares?"},
	InvestmentWaitingAmount:          {NamespaceInvestment, "How much do you want to invest?"},
	InvestmentWaitingDuration:        {NamespaceInvestment, fmt.Sprintf("For how many days? (%d-%d)", minInvestmentDays, maxInvestmentDays)},
	FarmWaitingCropQuantity:          {NamespaceFarm, fmt.Sprintf("How many plots do you want to plant? (%d-%d)", minPlots, maxPlots)},
	CastleWaitingUpgradeConfirmation: {NamespaceCastle, fmt.Sprintf("Fortifying your castle costs %d. Proceed? (yes/no)", CastleUpgradeCost)},
	AdminWaitingBroadcast:            {NamespaceAdmin, "Send the announcement text."},
	AdminWaitingUserID:               {NamespaceAdmin, "Send the mention or user ID of the member."},
	CustomReplyWaitingTrigger:        {NamespaceCustomReply, "Send the trigger word."},
	CustomReplyWaitingResponse:       {NamespaceCustomReply, "Send the reply text."},
	CustomReplyWaitingScope:          {NamespaceCustomReply, "Should the reply work `here` or `global`?"},
}

// Namespace returns the flow a state belongs to
func (s State) Namespace() Namespace {
	return states[s].namespace
}

// Prompt returns the question asked while waiting in this state
func (s State) Prompt() string {
	return states[s].prompt
}

// Valid reports whether the state is known
func (s State) Valid() bool {
	_, ok := states[s]
	return ok
}

// Key identifies a session: one per actor per scope
type Key struct {
	ActorID int64
	ScopeID int64
}

// Payload carries the values collected by earlier steps
type Payload map[string]any

// Int64 returns an integer value or zero
func (p Payload) Int64(key string) int64 {
	v, _ := p[key].(int64)
	return v
}

// String returns a string value or ""
func (p Payload) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Session is an in-flight flow
type Session struct {
	ActorID   int64
	ScopeID   int64
	State     State
	Payload   Payload
	UpdatedAt time.Time
}

func (s *Session) clone() Session {
	c := *s
	c.Payload = maps.Clone(s.Payload)
	if c.Payload == nil {
		c.Payload = Payload{}
	}
	return c
}

// OutcomeKind is the result of one dispatch
type OutcomeKind int

const (
	NoSession OutcomeKind = iota
	Advanced
	Completed
	Aborted
)

func (k OutcomeKind) String() string {
	switch k {
	case Advanced:
		return "advanced"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "no_session"
	}
}

// Outcome describes what a dispatch did. Err is set when input was rejected:
// with Kind Advanced the session was kept in the same State, with Kind Aborted
// it was cleared.
type Outcome struct {
	Kind  OutcomeKind
	State State
	Reply string
	Err   error
}

// Step is what a handler decides for one input
type Step struct {
	// Next is the state to move to; empty finishes the flow
	Next State
	// Set is merged into the payload when moving to Next
	Set   Payload
	Reply string
	// Abort ends the flow without running it, e.g. a declined confirmation
	Abort bool
}
