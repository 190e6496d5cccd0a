package conversation

import (
	"context"
	"fmt"
	"strings"

	"heist/models"
	"heist/service"
)

type propertyFlow struct {
	ledger service.LedgerService
}

// NewPropertyFlow buys a property from the catalogue after confirmation
func NewPropertyFlow(ledger service.LedgerService) StepHandler {
	return &propertyFlow{ledger: ledger}
}

func (f *propertyFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case PropertyWaitingChoice:
		property, ok := FindProperty(input)
		if !ok {
			return Step{}, service.NewValidationError("unknown property %q", input)
		}
		return Step{
			Next:  PropertyWaitingConfirmation,
			Set:   Payload{KeyProperty: property.Key},
			Reply: fmt.Sprintf("%s costs %d. Confirm the purchase? (yes/no)", property.Name, property.Price),
		}, nil

	case PropertyWaitingConfirmation:
		yes, err := parseYesNo(input)
		if err != nil {
			return Step{}, err
		}
		if !yes {
			return Step{Abort: true, Reply: "Purchase cancelled."}, nil
		}
		property, ok := FindProperty(sess.Payload.String(KeyProperty))
		if !ok {
			return Step{}, fmt.Errorf("property %q vanished from the catalogue", sess.Payload.String(KeyProperty))
		}
		cash, err := f.ledger.Spend(ctx, sess.ActorID, property.Price, models.CategoryPropertyPurchase,
			"Bought "+property.Name, map[string]any{"property": property.Key})
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("You bought a %s. Cash left: %d.", property.Name, cash)}, nil
	}
	return Step{}, fmt.Errorf("property flow cannot handle state %q", sess.State)
}

type stocksFlow struct {
	ledger service.LedgerService
}

// NewStocksFlow buys shares of a listed symbol
func NewStocksFlow(ledger service.LedgerService) StepHandler {
	return &stocksFlow{ledger: ledger}
}

func (f *stocksFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case StocksWaitingSymbol:
		stock, ok := FindStock(input)
		if !ok {
			return Step{}, service.NewValidationError("unknown symbol %q", input)
		}
		return Step{
			Next:  StocksWaitingBuyQuantity,
			Set:   Payload{KeySymbol: stock.Symbol},
			Reply: fmt.Sprintf("%s trades at %d. How many shares?", stock.Symbol, stock.Price),
		}, nil

	case StocksWaitingBuyQuantity:
		qty, err := parseInRange(input, 1, maxShares)
		if err != nil {
			return Step{}, err
		}
		stock, ok := FindStock(sess.Payload.String(KeySymbol))
		if !ok {
			return Step{}, fmt.Errorf("symbol %q vanished from the catalogue", sess.Payload.String(KeySymbol))
		}
		total := stock.Price * qty
		cash, err := f.ledger.Spend(ctx, sess.ActorID, total, models.CategoryStockPurchase,
			fmt.Sprintf("Bought %d %s", qty, stock.Symbol),
			map[string]any{"symbol": stock.Symbol, "quantity": qty, "price": stock.Price})
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("Bought %d %s for %d. Cash left: %d.", qty, stock.Symbol, total, cash)}, nil
	}
	return Step{}, fmt.Errorf("stocks flow cannot handle state %q", sess.State)
}

type investmentFlow struct {
	ledger  service.LedgerService
	minimum int64
}

// NewInvestmentFlow locks an amount away for a number of days
func NewInvestmentFlow(ledger service.LedgerService, minimum int64) StepHandler {
	return &investmentFlow{ledger: ledger, minimum: minimum}
}

func (f *investmentFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case InvestmentWaitingAmount:
		amount, err := ParseAmount(input)
		if err != nil {
			return Step{}, err
		}
		if amount < f.minimum {
			return Step{}, service.NewValidationError("the minimum investment is %d", f.minimum)
		}
		return Step{Next: InvestmentWaitingDuration, Set: Payload{KeyAmount: amount}}, nil

	case InvestmentWaitingDuration:
		days, err := parseInRange(input, minInvestmentDays, maxInvestmentDays)
		if err != nil {
			return Step{}, err
		}
		amount := sess.Payload.Int64(KeyAmount)
		cash, err := f.ledger.Spend(ctx, sess.ActorID, amount, models.CategoryInvestment,
			fmt.Sprintf("Invested for %d days", days), map[string]any{"duration_days": days})
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: fmt.Sprintf("Invested %d for %d days. Cash left: %d.", amount, days, cash)}, nil
	}
	return Step{}, fmt.Errorf("investment flow cannot handle state %q", sess.State)
}

type farmFlow struct {
	ledger service.LedgerService
}

// NewFarmFlow plants the crop named in the payload
func NewFarmFlow(ledger service.LedgerService) StepHandler {
	return &farmFlow{ledger: ledger}
}

func (f *farmFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	if sess.State != FarmWaitingCropQuantity {
		return Step{}, fmt.Errorf("farm flow cannot handle state %q", sess.State)
	}
	crop, ok := FindCrop(sess.Payload.String(KeyCrop))
	if !ok {
		return Step{}, fmt.Errorf("crop %q is not in the catalogue", sess.Payload.String(KeyCrop))
	}
	plots, err := parseInRange(input, minPlots, maxPlots)
	if err != nil {
		return Step{}, err
	}
	total := crop.SeedPrice * plots
	cash, err := f.ledger.Spend(ctx, sess.ActorID, total, models.CategoryFarmPlanting,
		fmt.Sprintf("Planted %d plots of %s", plots, crop.Name),
		map[string]any{"crop": crop.Name, "plots": plots})
	if err != nil {
		return Step{}, err
	}
	return Step{Reply: fmt.Sprintf("Planted %d plots of %s for %d. Cash left: %d.", plots, crop.Name, total, cash)}, nil
}

type castleFlow struct {
	ledger service.LedgerService
}

// NewCastleFlow fortifies the actor's castle after confirmation
func NewCastleFlow(ledger service.LedgerService) StepHandler {
	return &castleFlow{ledger: ledger}
}

func (f *castleFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	if sess.State != CastleWaitingUpgradeConfirmation {
		return Step{}, fmt.Errorf("castle flow cannot handle state %q", sess.State)
	}
	yes, err := parseYesNo(input)
	if err != nil {
		return Step{}, err
	}
	if !yes {
		return Step{Abort: true, Reply: "Upgrade cancelled."}, nil
	}
	cash, err := f.ledger.Spend(ctx, sess.ActorID, CastleUpgradeCost, models.CategoryCastleUpgrade, "Castle fortified", nil)
	if err != nil {
		return Step{}, err
	}
	return Step{Reply: fmt.Sprintf("Castle fortified. Cash left: %d.", cash)}, nil
}

type theftFlow struct {
	ledger service.LedgerService
}

// NewTheftFlow robs the chosen target
func NewTheftFlow(ledger service.LedgerService) StepHandler {
	return &theftFlow{ledger: ledger}
}

func (f *theftFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	if sess.State != TheftWaitingTarget {
		return Step{}, fmt.Errorf("theft flow cannot handle state %q", sess.State)
	}
	target, err := ParseUserID(input)
	if err != nil {
		return Step{}, err
	}
	result, err := f.ledger.AttemptTheft(ctx, sess.ActorID, target)
	if err != nil {
		return Step{}, err
	}
	return Step{Reply: TheftReply(result.Success, result.Amount, result.Chance, result.Roll)}, nil
}

// TheftReply renders the outcome of a theft attempt
func TheftReply(success bool, amount int64, chance, roll int) string {
	var b strings.Builder
	if success {
		fmt.Fprintf(&b, "Success! You stole %d.", amount)
	} else {
		fmt.Fprintf(&b, "Caught! You paid a fine of %d.", amount)
	}
	fmt.Fprintf(&b, " (chance %d%%, roll %d)", chance, roll)
	return b.String()
}
