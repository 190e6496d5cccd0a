package models

import (
	"time"
)

// TransactionCategory classifies a ledger record
type TransactionCategory string

const (
	CategoryAccountOpened    TransactionCategory = "account_opened"
	CategoryTransfer         TransactionCategory = "transfer"
	CategoryTheftSuccess     TransactionCategory = "theft_success"
	CategoryTheftFailed      TransactionCategory = "theft_failed"
	CategorySecurityUpgrade  TransactionCategory = "security_upgrade"
	CategorySalary           TransactionCategory = "salary"
	CategoryBonus            TransactionCategory = "bonus"
	CategoryDeposit          TransactionCategory = "deposit"
	CategoryWithdraw         TransactionCategory = "withdraw"
	CategoryPropertyPurchase TransactionCategory = "property_purchase"
	CategoryStockPurchase    TransactionCategory = "stock_purchase"
	CategoryInvestment       TransactionCategory = "investment"
	CategoryFarmPlanting     TransactionCategory = "farm_planting"
	CategoryCastleUpgrade    TransactionCategory = "castle_upgrade"
)

// IsCreditCategory reports whether the category may be used with Ledger.Credit
func (c TransactionCategory) IsCreditCategory() bool {
	return c == CategorySalary || c == CategoryBonus
}

// IsSpendCategory reports whether the category may be used with Ledger.Spend
func (c TransactionCategory) IsSpendCategory() bool {
	switch c {
	case CategoryPropertyPurchase, CategoryStockPurchase, CategoryInvestment,
		CategoryFarmPlanting, CategoryCastleUpgrade:
		return true
	}
	return false
}

// TransactionRecord is an immutable ledger entry. A nil CounterpartyID denotes the system.
type TransactionRecord struct {
	ID             int64               `db:"id"`
	ActorID        int64               `db:"actor_id"`
	CounterpartyID *int64              `db:"counterparty_id"`
	Amount         int64               `db:"amount"` // signed, from the actor's point of view
	Category       TransactionCategory `db:"category"`
	Description    string              `db:"description"`
	Metadata       map[string]any      `db:"metadata"`
	TxGroupID      string              `db:"tx_group_id"`
	CreatedAt      time.Time           `db:"created_at"`
}
