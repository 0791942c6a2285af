package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Holding is one investment as seen by the allocator.
type Holding struct {
	InvestorID snowflake.ID
	Amount     int64
	Multiplier decimal.Decimal
}

// Share is one investor's aggregated result.
type Share struct {
	InvestorID snowflake.ID    `json:"investor_id"`
	Invested   int64           `json:"invested"`
	Weighted   decimal.Decimal `json:"weighted_amount"`
	Amount     int64           `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Allocation is the split of a declared profit.
type Allocation struct {
	TotalProfit    int64           `json:"total_profit"`
	ProfitShare    decimal.Decimal `json:"profit_share"`
	InvestorPool   int64           `json:"investor_pool"`
	BusinessProfit int64           `json:"business_profit"`
	TotalWeighted  decimal.Decimal `json:"total_weighted"`
	Shares         []Share         `json:"shares"`
}

// Allocate splits profit between the business and the investors.
//
// The investor pool is floor(profit * share / 100). Each investor first gets the
// floor of its weighted pro-rata share; the cents left over go one at a time to
// the largest remainders, ties to the lowest investor id. Payouts therefore sum
// to exactly the pool.
func Allocate(profit int64, profitShare decimal.Decimal, holdings []Holding) (Allocation, error) {
	if profit <= 0 {
		return Allocation{}, ErrInvalidProfitAmount
	}
	if profitShare.IsNegative() || profitShare.GreaterThan(hundred) {
		return Allocation{}, ErrInvalidProfitShare
	}

	pool := decimal.NewFromInt(profit).Mul(profitShare).Div(hundred).Floor().IntPart()
	alloc := Allocation{
		TotalProfit:    profit,
		ProfitShare:    profitShare,
		InvestorPool:   pool,
		BusinessProfit: profit - pool,
		TotalWeighted:  decimal.Zero,
	}

	shares := group(holdings)
	for _, s := range shares {
		alloc.TotalWeighted = alloc.TotalWeighted.Add(s.Weighted)
	}
	if len(shares) == 0 {
		return alloc, nil
	}
	if !alloc.TotalWeighted.IsPositive() {
		for i := range shares {
			shares[i].Percentage = decimal.Zero
		}
		alloc.Shares = shares
		return alloc, nil
	}

	poolDec := decimal.NewFromInt(pool)
	remainders := make([]decimal.Decimal, len(shares))
	var assigned int64
	for i := range shares {
		q, r := poolDec.Mul(shares[i].Weighted).QuoRem(alloc.TotalWeighted, 0)
		shares[i].Amount = q.IntPart()
		remainders[i] = r
		assigned += shares[i].Amount
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := remainders[order[a]], remainders[order[b]]
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return shares[order[a]].InvestorID < shares[order[b]].InvestorID
	})
	for leftover, k := pool-assigned, 0; leftover > 0; leftover, k = leftover-1, k+1 {
		shares[order[k%len(order)]].Amount++
	}

	for i := range shares {
		shares[i].Percentage = percentage(shares[i].Amount, pool)
	}
	alloc.Shares = shares
	return alloc, nil
}

// Distributed sums the payout amounts.
func (a Allocation) Distributed() int64 {
	var total int64
	for _, s := range a.Shares {
		total += s.Amount
	}
	return total
}

func group(holdings []Holding) []Share {
	index := make(map[snowflake.ID]int, len(holdings))
	shares := make([]Share, 0, len(holdings))
	for _, h := range holdings {
		if h.Amount <= 0 {
			continue
		}
		m := h.Multiplier
		if !m.IsPositive() {
			m = decimal.NewFromInt(1)
		}
		weighted := decimal.NewFromInt(h.Amount).Mul(m)

		i, ok := index[h.InvestorID]
		if !ok {
			i = len(shares)
			index[h.InvestorID] = i
			shares = append(shares, Share{InvestorID: h.InvestorID, Weighted: decimal.Zero})
		}
		shares[i].Invested += h.Amount
		shares[i].Weighted = shares[i].Weighted.Add(weighted)
	}
	sort.Slice(shares, func(a, b int) bool {
		return shares[a].InvestorID < shares[b].InvestorID
	})
	return shares
}

func percentage(amount, pool int64) decimal.Decimal {
	if pool <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(amount).Mul(hundred).DivRound(decimal.NewFromInt(pool), 4)
}
