package pricing

import (
	"checkin-core/internal/domain/resource"
)

// QuoteInput carries everything the calculator may consult. The caller never
// inspects the resulting breakdown beyond showing and charging it.
type QuoteInput struct {
	Tier               resource.Tier
	Renewal            bool
	CustomerAge        int
	IsMember           bool
	MembershipPurchase *MembershipChoice
}

// MembershipChoice is the membership product the customer elected to buy
// during check-in, if any.
type MembershipChoice string

const (
	MembershipSixMonth MembershipChoice = "SIX_MONTH"
	MembershipAnnual   MembershipChoice = "ANNUAL"
)

type LineItem struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	AmountCents int64  `json:"amountCents"`
}

type Quote struct {
	TotalCents int64      `json:"totalCents"`
	LineItems  []LineItem `json:"lineItems"`
}

// QuoteCalculator is an opaque pure function from rental parameters to a price
// breakdown. Implementations must be deterministic for a given input.
type QuoteCalculator interface {
	Calculate(input QuoteInput) Quote
}

type DefaultQuoteCalculator struct {
	tierBaseCents       map[resource.Tier]int64
	renewalCents        map[resource.Tier]int64
	nonMemberFeeCents   int64
	seniorDiscountCents int64
	membershipCents     map[MembershipChoice]int64
}

func NewDefaultQuoteCalculator() *DefaultQuoteCalculator {
	return &DefaultQuoteCalculator{
		tierBaseCents: map[resource.Tier]int64{
			resource.TierStandard: 3200,
			resource.TierDouble:   4500,
			resource.TierSpecial:  6000,
			resource.TierLocker:   1800,
		},
		renewalCents: map[resource.Tier]int64{
			resource.TierStandard: 1600,
			resource.TierDouble:   2200,
			resource.TierSpecial:  3000,
			resource.TierLocker:   900,
		},
		nonMemberFeeCents:   1000,
		seniorDiscountCents: -500,
		membershipCents: map[MembershipChoice]int64{
			MembershipSixMonth: 2500,
			MembershipAnnual:   4000,
		},
	}
}

func (c *DefaultQuoteCalculator) Calculate(input QuoteInput) Quote {
	var items []LineItem

	base := c.tierBaseCents[input.Tier]
	label := string(input.Tier) + " rental"
	if input.Renewal {
		base = c.renewalCents[input.Tier]
		label = string(input.Tier) + " renewal"
	}
	items = append(items, LineItem{Code: "RENTAL", Label: label, AmountCents: base})

	willBeMember := input.IsMember || input.MembershipPurchase != nil
	if !willBeMember {
		items = append(items, LineItem{Code: "NON_MEMBER_FEE", Label: "Non-member fee", AmountCents: c.nonMemberFeeCents})
	}
	if input.MembershipPurchase != nil {
		items = append(items, LineItem{
			Code:        "MEMBERSHIP",
			Label:       "Membership (" + string(*input.MembershipPurchase) + ")",
			AmountCents: c.membershipCents[*input.MembershipPurchase],
		})
	}
	if input.CustomerAge >= 65 && !input.Renewal {
		items = append(items, LineItem{Code: "SENIOR_DISCOUNT", Label: "Senior discount", AmountCents: c.seniorDiscountCents})
	}

	var total int64
	for _, it := range items {
		total += it.AmountCents
	}
	if total < 0 {
		total = 0
	}
	return Quote{TotalCents: total, LineItems: items}
}
