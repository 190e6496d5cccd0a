package metrics

import (
	"context"
	"strconv"

	"heist/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CashFlow sums committed cash movements.
// Labels:
//   - category: transaction category (e.g. "transfer", "salary", "theft_success")
//   - direction: "in" or "out"
var CashFlow = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cash_flow_total",
		Help:      "Total cash moved by committed ledger operations, by category and direction.",
	},
	[]string{"category", "direction"},
)

// AccountsOpened counts newly opened accounts.
var AccountsOpened = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_opened_total",
		Help:      "Total number of opened accounts.",
	},
)

// SecurityUpgrades counts security purchases by the level reached.
var SecurityUpgrades = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_upgrades_total",
		Help:      "Total number of security upgrades, by new level.",
	},
	[]string{"level"},
)

// Subscribe records ledger events once their transaction has committed
func Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(_ context.Context, e events.Event) {
		ev, ok := e.(events.BalanceChangeEvent)
		if !ok || ev.ChangeAmount == 0 {
			return
		}
		direction, amount := "in", ev.ChangeAmount
		if amount < 0 {
			direction, amount = "out", -amount
		}
		CashFlow.WithLabelValues(string(ev.Category), direction).Add(float64(amount))
	})
	bus.Subscribe(events.EventTypeAccountOpened, func(_ context.Context, e events.Event) {
		if _, ok := e.(events.AccountOpenedEvent); ok {
			AccountsOpened.Inc()
		}
	})
	bus.Subscribe(events.EventTypeSecurityUpgraded, func(_ context.Context, e events.Event) {
		if ev, ok := e.(events.SecurityUpgradedEvent); ok {
			SecurityUpgrades.WithLabelValues(strconv.Itoa(ev.NewLevel)).Inc()
		}
	})
}
