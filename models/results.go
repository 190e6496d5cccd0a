package models

// TransferResult represents the outcome of a transfer
type TransferResult struct {
	Amount           int64
	SenderCash       int64
	ReceiverCash     int64
	ReceiverUsername string
}

// UpgradeResult represents the outcome of a security upgrade
type UpgradeResult struct {
	PreviousLevel int
	NewLevel      int
	Cost          int64
	CashAfter     int64
}

// BankMoveResult represents the outcome of a deposit or withdrawal
type BankMoveResult struct {
	Amount int64
	Cash   int64
	Bank   int64
}
