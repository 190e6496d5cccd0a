package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"heist/events"
	"heist/models"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	NewServer(":0", nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestSubscribe_RecordsLedgerEvents(t *testing.T) {
	bus := events.NewBus()
	Subscribe(bus)
	ctx := context.Background()

	bus.Emit(ctx, events.BalanceChangeEvent{ActorID: 1, OldCash: 500, NewCash: 250, Category: models.CategoryTransfer, ChangeAmount: -250})
	bus.Emit(ctx, events.BalanceChangeEvent{ActorID: 2, OldCash: 0, NewCash: 250, Category: models.CategoryTransfer, ChangeAmount: 250})
	bus.Emit(ctx, events.AccountOpenedEvent{ActorID: 3, Username: "carol", InitialBalance: 1000})
	bus.Emit(ctx, events.SecurityUpgradedEvent{ActorID: 1, OldLevel: 1, NewLevel: 2, Cost: 5000})

	expected := []string{
		`heist_cash_flow_total{category="transfer",direction="in"} 250`,
		`heist_cash_flow_total{category="transfer",direction="out"} 250`,
		`heist_accounts_opened_total 1`,
		`heist_security_upgrades_total{level="2"} 1`,
	}
	assert.Eventually(t, func() bool {
		body := scrape(t)
		for _, line := range expected {
			if !strings.Contains(body, line) {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}
