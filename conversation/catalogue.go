package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// Banks an account can be opened at
var Banks = []string{"Golden Vault", "Iron Crown", "Sapphire Trust"}

// Property is a purchasable building
type Property struct {
	Key   string
	Name  string
	Price int64
}

var Properties = []Property{
	{Key: "apartment", Name: "Apartment", Price: 20000},
	{Key: "house", Name: "House", Price: 50000},
	{Key: "villa", Name: "Villa", Price: 150000},
	{Key: "tower", Name: "Tower", Price: 500000},
}

// Stock is a tradable symbol at a fixed price
type Stock struct {
	Symbol string
	Name   string
	Price  int64
}

var Stocks = []Stock{
	{Symbol: "GLD", Name: "Gold Mining Co", Price: 250},
	{Symbol: "OIL", Name: "Desert Oil", Price: 120},
	{Symbol: "TEC", Name: "Falcon Tech", Price: 400},
	{Symbol: "SHP", Name: "Pearl Shipping", Price: 80},
}

// Crop is a plantable crop and its seed price per plot
type Crop struct {
	Name      string
	SeedPrice int64
}

var Crops = []Crop{
	{Name: "wheat", SeedPrice: 50},
	{Name: "corn", SeedPrice: 80},
	{Name: "dates", SeedPrice: 150},
}

// CastleUpgradeCost is charged for each fortification
const CastleUpgradeCost int64 = 10000

const (
	minInvestmentDays = 1
	maxInvestmentDays = 30
	minPlots          = 1
	maxPlots          = 100
	maxShares         = 1000
)

// FindBank accepts a menu number or a bank name
func FindBank(input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(Banks) {
		return Banks[n-1], true
	}
	for _, b := range Banks {
		if strings.EqualFold(b, input) {
			return b, true
		}
	}
	return "", false
}

// FindProperty accepts a menu number, key or name
func FindProperty(input string) (Property, bool) {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(Properties) {
		return Properties[n-1], true
	}
	for _, p := range Properties {
		if strings.EqualFold(p.Key, input) || strings.EqualFold(p.Name, input) {
			return p, true
		}
	}
	return Property{}, false
}

// FindStock looks a symbol up case-insensitively
func FindStock(symbol string) (Stock, bool) {
	for _, s := range Stocks {
		if strings.EqualFold(s.Symbol, symbol) {
			return s, true
		}
	}
	return Stock{}, false
}

// FindCrop looks a crop up by name
func FindCrop(name string) (Crop, bool) {
	for _, c := range Crops {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Crop{}, false
}

func bankMenu() string {
	var b strings.Builder
	for i, name := range Banks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func propertyMenu() string {
	var b strings.Builder
	for i, p := range Properties {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, p.Name, p.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

func stockMenu() string {
	var b strings.Builder
	for _, s := range Stocks {
		fmt.Fprintf(&b, "%s - %s (%d)\n", s.Symbol, s.Name, s.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}
