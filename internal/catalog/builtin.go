package catalog

import (
	"cardrewards/internal/core"
)

func dollars(d int64) core.Money { return core.Money{Cents: d * 100} }

func capOf(d int64) *core.Money {
	m := dollars(d)
	return &m
}

func mpd(v float64) core.Rate { return core.Rate{Value: v, Kind: core.MilesPerDollar} }
func pct(v float64) core.Rate { return core.Rate{Value: v, Kind: core.Percentage} }

// Builtin returns the built-in card catalog. It covers every rule shape the
// engine supports and doubles as the development dataset when no CSV
// catalog directory is configured.
func Builtin() (*Catalog, error) {
	return New([]Card{
		{
			ID:     "uob-ladys",
			Name:   "UOB Lady's",
			Issuer: "UOB",
			Kind:   Miles,
			Groups: []Group{
				{ID: "dining", Categories: []core.Category{core.Dining}},
				{ID: "entertainment", Categories: []core.Category{core.Entertainment}},
				{ID: "retail", Categories: []core.Category{core.Retail}},
				{ID: "transport", Categories: []core.Category{core.Transport, core.Petrol}},
				{ID: "travel", Categories: []core.Category{core.Travel}},
			},
			Tiers: []RateTier{{
				Description: "Base",
				BaseRate:    mpd(0.4),
				BonusRate:   mpd(4),
				SubCaps: []SubCap{
					{Group: "dining", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "entertainment", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "retail", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "transport", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "travel", Kind: CapSpend, Amount: dollars(1000)},
				},
			}},
			Rule: &SpecialRule{
				Kind:       RuleSingleGroupBonus,
				Candidates: []string{"dining", "entertainment", "retail", "transport", "travel"},
			},
		},
		{
			ID:     "uob-ladys-solitaire",
			Name:   "UOB Lady's Solitaire",
			Issuer: "UOB",
			Kind:   Miles,
			Groups: []Group{
				{ID: "dining", Categories: []core.Category{core.Dining}},
				{ID: "entertainment", Categories: []core.Category{core.Entertainment}},
				{ID: "retail", Categories: []core.Category{core.Retail}},
				{ID: "transport", Categories: []core.Category{core.Transport, core.Petrol}},
				{ID: "travel", Categories: []core.Category{core.Travel}},
			},
			Tiers: []RateTier{{
				Description: "Base",
				BaseRate:    mpd(0.4),
				BonusRate:   mpd(4),
				SubCaps: []SubCap{
					{Group: "dining", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "entertainment", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "retail", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "transport", Kind: CapSpend, Amount: dollars(1000)},
					{Group: "travel", Kind: CapSpend, Amount: dollars(1000)},
				},
			}},
			Rule: &SpecialRule{
				Kind:       RuleDualGroupBonus,
				Candidates: []string{"dining", "entertainment", "retail", "transport", "travel"},
			},
		},
		{
			ID:     "uob-visa-signature",
			Name:   "UOB Visa Signature",
			Issuer: "UOB",
			Kind:   Miles,
			Groups: []Group{
				{ID: "fcy", Categories: []core.Category{core.Overseas}},
				{ID: "local", Categories: []core.Category{
					core.Dining, core.Groceries, core.Petrol, core.Entertainment, core.Retail,
				}},
			},
			Tiers: []RateTier{{
				Description: "Base",
				BaseRate:    mpd(0.4),
				BonusRate:   mpd(4),
				SubCaps: []SubCap{
					{Group: "fcy", Kind: CapSpend, Amount: dollars(1200)},
					{Group: "local", Kind: CapSpend, Amount: dollars(1200)},
				},
			}},
			Rule: &SpecialRule{
				Kind:       RuleMinSpendBonus,
				Candidates: []string{"fcy", "local"},
				MinSpend:   dollars(1000),
				Basis:      MinSpendPerGroup,
			},
		},
		{
			ID:     "dbs-yuu",
			Name:   "DBS yuu",
			Issuer: "DBS",
			Kind:   Miles,
			Groups: []Group{
				{ID: "everyday", Categories: []core.Category{core.Dining, core.Groceries, core.Transport}},
			},
			Tiers: []RateTier{{
				Description: "Base",
				BaseRate:    mpd(0.4),
				BonusRate:   mpd(10),
				SubCaps: []SubCap{
					{Group: "everyday", Kind: CapSpend, Amount: dollars(600)},
				},
			}},
			Rule: &SpecialRule{
				Kind:       RuleMinSpendBonus,
				Candidates: []string{"everyday"},
				MinSpend:   dollars(600),
				Basis:      MinSpendTotal,
			},
		},
		{
			ID:     "trust-cashback",
			Name:   "Trust Cashback",
			Issuer: "Trust",
			Kind:   Cashback,
			Groups: []Group{
				{ID: "bonus", Categories: []core.Category{core.Dining, core.Groceries, core.Transport, core.Online}},
			},
			Tiers: []RateTier{{
				Description: "Base",
				BaseRate:    pct(1),
				BonusRate:   pct(5),
				Cap:         capOf(50),
			}},
			Rule: &SpecialRule{
				Kind:       RuleMinSpendBonus,
				Candidates: []string{"bonus"},
				MinSpend:   dollars(450),
				Basis:      MinSpendTotal,
			},
		},
		{
			ID:     "sc-smart",
			Name:   "SC Smart",
			Issuer: "Standard Chartered",
			Kind:   Cashback,
			Tiers: []RateTier{
				{
					Description: "Below minimum",
					BaseRate:    pct(0.5),
				},
				{
					Description: "Qualifying spend",
					MinSpend:    dollars(800),
					Rates: map[core.Category]core.Rate{
						core.Dining:    pct(6),
						core.Groceries: pct(6),
						core.Transport: pct(3),
						core.Streaming: pct(6),
					},
					BaseRate: pct(0.5),
					Cap:      capOf(80),
				},
			},
		},
		{
			ID:     "hsbc-revolution",
			Name:   "HSBC Revolution",
			Issuer: "HSBC",
			Kind:   Miles,
			Tiers: []RateTier{{
				Description: "Base",
				Rates: map[core.Category]core.Rate{
					core.Dining:    mpd(4),
					core.Groceries: mpd(4),
					core.Online:    mpd(4),
					core.Travel:    mpd(4),
				},
				BaseRate: mpd(0.4),
				SubCaps: []SubCap{
					{Category: core.Dining, Kind: CapSpend, Amount: dollars(1000)},
					{Category: core.Groceries, Kind: CapSpend, Amount: dollars(1000)},
					{Category: core.Online, Kind: CapSpend, Amount: dollars(1000)},
					{Category: core.Travel, Kind: CapSpend, Amount: dollars(1000)},
				},
			}},
		},
	})
}
