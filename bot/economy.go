package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"heist/bot/common"
	"heist/conversation"
	"heist/models"
	"heist/service"
)

func (d *Dispatcher) openAccountCommand(ctx context.Context, msg Message, args []string) (string, error) {
	return d.begin(msg, conversation.BankingWaitingBankSelection, conversation.Payload{
		conversation.KeyUsername: msg.Username,
	})
}

func (d *Dispatcher) balanceCommand(ctx context.Context, msg Message, args []string) (string, error) {
	account, err := d.ledger.GetAccount(ctx, msg.ActorID)
	if err != nil {
		return "", err
	}
	return formatAccount(account), nil
}

func formatAccount(account *models.Account) string {
	return fmt.Sprintf("💰 Cash: **%s**\n🏦 %s: **%s**\n🛡️ Security level %d (%d%% protection)\n📊 Total: **%s**",
		common.FormatBalance(account.Cash),
		account.BankName, common.FormatBalance(account.Bank),
		account.SecurityLevel, account.Protection(),
		common.FormatBalance(account.Total()))
}

func (d *Dispatcher) depositCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) == 0 {
		return d.begin(msg, conversation.BankingWaitingDepositAmount, nil)
	}
	amount, err := conversation.ParseAmount(args[0])
	if err != nil {
		return "", err
	}
	result, err := d.ledger.Deposit(ctx, msg.ActorID, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🏦 Deposited **%s**. Cash: %s, bank: %s",
		common.FormatBalance(result.Amount), common.FormatBalance(result.Cash), common.FormatBalance(result.Bank)), nil
}

func (d *Dispatcher) withdrawCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) == 0 {
		return d.begin(msg, conversation.BankingWaitingWithdrawAmount, nil)
	}
	amount, err := conversation.ParseAmount(args[0])
	if err != nil {
		return "", err
	}
	result, err := d.ledger.Withdraw(ctx, msg.ActorID, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("💵 Withdrew **%s**. Cash: %s, bank: %s",
		common.FormatBalance(result.Amount), common.FormatBalance(result.Cash), common.FormatBalance(result.Bank)), nil
}

// transferCommand accepts nothing, a recipient, or a recipient and an amount,
// starting the guided flow at the first missing piece.
func (d *Dispatcher) transferCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) == 0 {
		return d.begin(msg, conversation.BankingWaitingTransferUser, nil)
	}
	target, err := conversation.ParseUserID(args[0])
	if err != nil {
		return "", err
	}
	if target == msg.ActorID {
		return "", service.NewValidationError("you cannot transfer to yourself")
	}
	if len(args) == 1 {
		return d.begin(msg, conversation.BankingWaitingTransferAmount, conversation.Payload{
			conversation.KeyTarget: target,
		})
	}
	amount, err := conversation.ParseAmount(args[1])
	if err != nil {
		return "", err
	}
	result, err := d.ledger.Transfer(ctx, msg.ActorID, target, amount)
	if err != nil {
		return "", err
	}
	return common.FormatTransferResult(result.Amount, target, result.SenderCash), nil
}

func (d *Dispatcher) salaryCommand(ctx context.Context, msg Message, args []string) (string, error) {
	result, err := d.salary.Collect(ctx, msg.ActorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("💼 Salary of **%s** collected. Cash: %s. Next payment %s",
		common.FormatBalance(result.Amount), common.FormatBalance(result.NewCash),
		common.FormatDiscordTimestamp(result.NextPayment, "R")), nil
}

func (d *Dispatcher) robCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) == 0 {
		return d.begin(msg, conversation.TheftWaitingTarget, nil)
	}
	target, err := conversation.ParseUserID(args[0])
	if err != nil {
		return "", err
	}
	result, err := d.ledger.AttemptTheft(ctx, msg.ActorID, target)
	if err != nil {
		return "", err
	}
	return conversation.TheftReply(result.Success, result.Amount, result.Chance, result.Roll), nil
}

// securityOptionsCommand lists the levels, or buys the level given as argument
func (d *Dispatcher) securityOptionsCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) > 0 {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return "", service.NewValidationError("%q is not a security level", args[0])
		}
		result, err := d.ledger.UpgradeSecurity(ctx, msg.ActorID, level)
		if err != nil {
			return "", err
		}
		return formatUpgrade(result), nil
	}

	current := 0
	account, err := d.ledger.GetAccount(ctx, msg.ActorID)
	switch {
	case err == nil:
		current = account.SecurityLevel
	case service.KindOf(err) != service.KindNotRegistered:
		return "", err
	}

	var b strings.Builder
	b.WriteString("🛡️ **Security levels**\n")
	for _, level := range models.SecurityLevels {
		marker := ""
		if level.Level == current {
			marker = " ← current"
		}
		fmt.Fprintf(&b, "Level %d: %d%% protection, costs %s%s\n",
			level.Level, level.Protection, common.FormatBalance(level.UpgradeCost), marker)
	}
	b.WriteString("Use `security <level>` or `upgrade security` to buy protection.")
	return b.String(), nil
}

func (d *Dispatcher) upgradeSecurityCommand(ctx context.Context, msg Message, args []string) (string, error) {
	result, err := d.ledger.UpgradeSecurityNext(ctx, msg.ActorID)
	if err != nil {
		return "", err
	}
	return formatUpgrade(result), nil
}

func formatUpgrade(result *models.UpgradeResult) string {
	return fmt.Sprintf("🛡️ Security upgraded from level %d to %d for **%s**. Cash left: %s",
		result.PreviousLevel, result.NewLevel, common.FormatBalance(result.Cost), common.FormatBalance(result.CashAfter))
}

func (d *Dispatcher) propertyCommand(ctx context.Context, msg Message, args []string) (string, error) {
	return d.begin(msg, conversation.PropertyWaitingChoice, nil)
}

func (d *Dispatcher) stocksCommand(ctx context.Context, msg Message, args []string) (string, error) {
	return d.begin(msg, conversation.StocksWaitingSymbol, nil)
}

func (d *Dispatcher) investCommand(ctx context.Context, msg Message, args []string) (string, error) {
	return d.begin(msg, conversation.InvestmentWaitingAmount, nil)
}

func (d *Dispatcher) castleCommand(ctx context.Context, msg Message, args []string) (string, error) {
	return d.begin(msg, conversation.CastleWaitingUpgradeConfirmation, nil)
}

// farmCommand lists the crops, or starts planting the named one
func (d *Dispatcher) farmCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("🌾 **Crops** (seed price per plot)\n")
		for _, crop := range conversation.Crops {
			fmt.Fprintf(&b, "%s: %s\n", crop.Name, common.FormatBalance(crop.SeedPrice))
		}
		b.WriteString("Use `farm <crop>` to plant.")
		return b.String(), nil
	}
	crop, ok := conversation.FindCrop(args[0])
	if !ok {
		return "", service.NewValidationError("unknown crop %q", args[0])
	}
	return d.begin(msg, conversation.FarmWaitingCropQuantity, conversation.Payload{
		conversation.KeyCrop: crop.Name,
	})
}
