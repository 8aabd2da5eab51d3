package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cardrewards/internal/core"
)

// CSV file names expected inside the catalog data directory.
const (
	cardsFile  = "cards.csv"
	tiersFile  = "card_tiers.csv"
	ratesFile  = "category_rates.csv"
	groupsFile = "card_groups.csv"
	rulesFile  = "card_rules.csv"
)

// LoadDir reads the card catalog from CSV files in dir and returns a
// validated catalog. The five files are:
//
//	cards.csv          card_id,name,issuer,card_type
//	card_tiers.csv     tier_id,card_id,description,min_spend,min_spend_category,cap_amount,base_rate,base_rate_type,bonus_rate,bonus_rate_type
//	category_rates.csv tier_id,category,rate_value,rate_type,cap_amount,cap_type
//	card_groups.csv    card_id,group_id,category
//	card_rules.csv     card_id,rule_kind,candidates,min_spend,basis
//
// Optional numeric fields may be left empty. candidates is a
// semicolon-separated list of group IDs.
func LoadDir(dir string) (*Catalog, error) {
	cards, order, err := loadCards(filepath.Join(dir, cardsFile))
	if err != nil {
		return nil, err
	}
	tierOwner, err := loadTiers(filepath.Join(dir, tiersFile), cards)
	if err != nil {
		return nil, err
	}
	if err := loadRates(filepath.Join(dir, ratesFile), tierOwner); err != nil {
		return nil, err
	}
	if err := loadGroups(filepath.Join(dir, groupsFile), cards); err != nil {
		return nil, err
	}
	if err := loadRules(filepath.Join(dir, rulesFile), cards); err != nil {
		return nil, err
	}

	out := make([]Card, 0, len(order))
	for _, id := range order {
		card := cards[id]
		sort.Slice(card.Tiers, func(i, j int) bool {
			return card.Tiers[i].MinSpend.Cents < card.Tiers[j].MinSpend.Cents
		})
		out = append(out, *card)
	}
	return New(out)
}

// tierRef locates a tier inside its owning card so rate rows can attach to
// it after the tier rows are read.
type tierRef struct {
	card *Card
	idx  int
}

func loadCards(path string) (map[string]*Card, []string, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	cards := make(map[string]*Card, len(rows))
	order := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, nil, rowErr(path, i, "expected 4 columns")
		}
		id := strings.TrimSpace(row[0])
		if _, dup := cards[id]; dup {
			return nil, nil, rowErr(path, i, "duplicate card_id %q", id)
		}
		cards[id] = &Card{
			ID:     id,
			Name:   strings.TrimSpace(row[1]),
			Issuer: strings.TrimSpace(row[2]),
			Kind:   CardKind(strings.TrimSpace(row[3])),
		}
		order = append(order, id)
	}
	return cards, order, nil
}

func loadTiers(path string, cards map[string]*Card) (map[string]tierRef, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]tierRef, len(rows))
	for i, row := range rows {
		if len(row) < 10 {
			return nil, rowErr(path, i, "expected 10 columns")
		}
		tierID := strings.TrimSpace(row[0])
		card, ok := cards[strings.TrimSpace(row[1])]
		if !ok {
			return nil, rowErr(path, i, "tier %q references unknown card %q", tierID, row[1])
		}
		minSpend, err := parseMoney(row[3])
		if err != nil {
			return nil, rowErr(path, i, "min_spend: %v", err)
		}
		tier := RateTier{
			Description:      strings.TrimSpace(row[2]),
			MinSpend:         minSpend,
			MinSpendCategory: core.Category(strings.TrimSpace(row[4])),
			Rates:            make(map[core.Category]core.Rate),
		}
		if cap, ok, err := parseOptMoney(row[5]); err != nil {
			return nil, rowErr(path, i, "cap_amount: %v", err)
		} else if ok {
			tier.Cap = &cap
		}
		if tier.BaseRate, err = parseRate(row[6], row[7]); err != nil {
			return nil, rowErr(path, i, "base_rate: %v", err)
		}
		if tier.BonusRate, err = parseRate(row[8], row[9]); err != nil {
			return nil, rowErr(path, i, "bonus_rate: %v", err)
		}
		card.Tiers = append(card.Tiers, tier)
		refs[tierID] = tierRef{card: card, idx: len(card.Tiers) - 1}
	}
	return refs, nil
}

func loadRates(path string, refs map[string]tierRef) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) < 6 {
			return rowErr(path, i, "expected 6 columns")
		}
		ref, ok := refs[strings.TrimSpace(row[0])]
		if !ok {
			return rowErr(path, i, "rate references unknown tier %q", row[0])
		}
		tier := &ref.card.Tiers[ref.idx]
		cat := core.Category(strings.TrimSpace(row[1]))
		rate, err := parseRate(row[2], row[3])
		if err != nil {
			return rowErr(path, i, "rate_value: %v", err)
		}
		tier.Rates[cat] = rate
		if capAmt, ok, err := parseOptMoney(row[4]); err != nil {
			return rowErr(path, i, "cap_amount: %v", err)
		} else if ok {
			tier.SubCaps = append(tier.SubCaps, SubCap{
				Category: cat,
				Kind:     CapKind(strings.TrimSpace(row[5])),
				Amount:   capAmt,
			})
		}
	}
	return nil
}

func loadGroups(path string, cards map[string]*Card) error {
	rows, err := readCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // groups are optional
		}
		return err
	}
	for i, row := range rows {
		if len(row) < 3 {
			return rowErr(path, i, "expected 3 columns")
		}
		card, ok := cards[strings.TrimSpace(row[0])]
		if !ok {
			return rowErr(path, i, "group references unknown card %q", row[0])
		}
		groupID := strings.TrimSpace(row[1])
		cat := core.Category(strings.TrimSpace(row[2]))
		if g := card.Group(groupID); g != nil {
			g.Categories = append(g.Categories, cat)
		} else {
			card.Groups = append(card.Groups, Group{ID: groupID, Categories: []core.Category{cat}})
		}
	}
	return nil
}

func loadRules(path string, cards map[string]*Card) error {
	rows, err := readCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // rules are optional
		}
		return err
	}
	for i, row := range rows {
		if len(row) < 5 {
			return rowErr(path, i, "expected 5 columns")
		}
		card, ok := cards[strings.TrimSpace(row[0])]
		if !ok {
			return rowErr(path, i, "rule references unknown card %q", row[0])
		}
		rule := &SpecialRule{
			Kind:  RuleKind(strings.TrimSpace(row[1])),
			Basis: MinSpendBasis(strings.TrimSpace(row[4])),
		}
		for _, id := range strings.Split(row[2], ";") {
			if id = strings.TrimSpace(id); id != "" {
				rule.Candidates = append(rule.Candidates, id)
			}
		}
		if minSpend, ok, err := parseOptMoney(row[3]); err != nil {
			return rowErr(path, i, "min_spend: %v", err)
		} else if ok {
			rule.MinSpend = minSpend
		}
		card.Rule = rule
	}
	return nil
}

// readCSV reads all data rows of a CSV file, skipping the header line.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func rowErr(path string, row int, format string, args ...any) error {
	// +2: header line plus 1-based numbering.
	return fmt.Errorf("%s line %d: %s", filepath.Base(path), row+2, fmt.Sprintf(format, args...))
}

func parseMoney(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// parseOptMoney parses an optional money field; an empty field is absent.
func parseOptMoney(s string) (core.Money, bool, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, false, nil
	}
	m, err := parseMoney(s)
	return m, err == nil, err
}

func parseRate(value, kind string) (core.Rate, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return core.Rate{}, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return core.Rate{}, fmt.Errorf("invalid rate %q", value)
	}
	if v == 0 {
		return core.Rate{}, nil
	}
	return core.Rate{Value: v, Kind: core.RateKind(strings.TrimSpace(kind))}, nil
}
