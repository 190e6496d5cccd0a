package conversation

import (
	"context"
	"fmt"

	"heist/service"
)

// Payload keys shared by the flows
const (
	KeyUsername = "username"
	KeyTarget   = "target"
	KeyProperty = "property"
	KeySymbol   = "symbol"
	KeyAmount   = "amount"
	KeyCrop     = "crop"
	KeyAction   = "action"
	KeyRole     = "role"
	KeyTrigger  = "trigger"
	KeyResponse = "response"
)

type bankingFlow struct {
	ledger service.LedgerService
}

// NewBankingFlow handles account opening, deposits, withdrawals and transfers
func NewBankingFlow(ledger service.LedgerService) StepHandler {
	return &bankingFlow{ledger: ledger}
}

func (f *bankingFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case BankingWaitingBankSelection:
		bank, ok := FindBank(input)
		if !ok {
			return Step{}, service.NewValidationError("unknown bank %q", input)
		}
		account, created, err := f.ledger.OpenAccount(ctx, sess.ActorID, sess.Payload.String(KeyUsername), bank)
		if err != nil {
			return Step{}, err
		}
		if !created {
			return Step{Reply: fmt.Sprintf("You already have an account at %s.", account.BankName)}, nil
		}
		return Step{Reply: fmt.Sprintf("Account opened at %s. Starting cash: %d.", bank, account.Cash)}, nil

	case BankingWaitingDepositAmount:
		amount, err := ParseAmount(input)
		if err != nil {
			return Step{}, err
		}
		result, err := f.ledger.Deposit(ctx, sess.ActorID, amount)
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("Deposited %d. Cash: %d, bank: %d.", result.Amount, result.Cash, result.Bank)}, nil

	case BankingWaitingWithdrawAmount:
		amount, err := ParseAmount(input)
		if err != nil {
			return Step{}, err
		}
		result, err := f.ledger.Withdraw(ctx, sess.ActorID, amount)
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("Withdrew %d. Cash: %d, bank: %d.", result.Amount, result.Cash, result.Bank)}, nil

	case BankingWaitingTransferUser:
		target, err := ParseUserID(input)
		if err != nil {
			return Step{}, err
		}
		if target == sess.ActorID {
			return Step{}, service.NewValidationError("you cannot send money to yourself")
		}
		return Step{Next: BankingWaitingTransferAmount, Set: Payload{KeyTarget: target}}, nil

	case BankingWaitingTransferAmount:
		amount, err := ParseAmount(input)
		if err != nil {
			return Step{}, err
		}
		result, err := f.ledger.Transfer(ctx, sess.ActorID, sess.Payload.Int64(KeyTarget), amount)
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("Sent %d to %s. Your cash: %d.", result.Amount, result.ReceiverUsername, result.SenderCash)}, nil
	}
	return Step{}, fmt.Errorf("banking flow cannot handle state %q", sess.State)
}
