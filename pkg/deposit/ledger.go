// Package deposit aggregates the donations settled in a gateway payout
// into per-fund buckets for accounting export.
package deposit

import (
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm"
	"github.com/shopspring/decimal"
)

// DefaultFund receives donations with no campaign attribution.
const DefaultFund = "General"

// PayoutRef identifies the settlement batch being aggregated.
type PayoutRef struct {
	ID     string
	Date   time.Time
	Amount decimal.Decimal
}

// Bucket accumulates gross and net for one fund. Child buckets hold
// per-campaign splits under a parent fund; only top-level buckets count
// toward ledger totals, so a donation filed under a child is not counted
// twice.
type Bucket struct {
	Gross    decimal.Decimal
	Net      decimal.Decimal
	Children map[string]*Bucket
}

// Fees is the gateway's cut, derived rather than stored so the bucket can
// never disagree with itself.
func (b *Bucket) Fees() decimal.Decimal {
	return b.Gross.Sub(b.Net)
}

func (b *Bucket) add(gross, net decimal.Decimal) {
	b.Gross = b.Gross.Add(gross)
	b.Net = b.Net.Add(net)
}

func (b *Bucket) child(name string) *Bucket {
	if b.Children == nil {
		b.Children = make(map[string]*Bucket)
	}
	c, ok := b.Children[name]
	if !ok {
		c = &Bucket{}
		b.Children[name] = c
	}
	return c
}

// Ledger is the aggregated view of one payout.
type Ledger struct {
	Payout PayoutRef
	Funds  map[string]*Bucket
}

// TotalGross sums gross across top-level funds.
func (l *Ledger) TotalGross() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.Funds {
		total = total.Add(b.Gross)
	}
	return total
}

// TotalNet sums net across top-level funds.
func (l *Ledger) TotalNet() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.Funds {
		total = total.Add(b.Net)
	}
	return total
}

// TotalFees sums fees across top-level funds.
func (l *Ledger) TotalFees() decimal.Decimal {
	return l.TotalGross().Sub(l.TotalNet())
}

// Aggregate groups the payout's donations into fund buckets. parentOf maps
// a campaign to its parent fund; campaigns with a parent land in a child
// bucket under it, campaigns without one get a top-level bucket of their
// own, and unattributed donations fall into DefaultFund. A nil parentOf
// treats every campaign as top-level.
func Aggregate(payout PayoutRef, donations []*crm.Donation, parentOf func(campaignID string) string) *Ledger {
	l := &Ledger{
		Payout: payout,
		Funds:  make(map[string]*Bucket),
	}
	for _, d := range donations {
		fund := d.CampaignID
		if fund == "" {
			fund = DefaultFund
		}
		var parent string
		if parentOf != nil && d.CampaignID != "" {
			parent = parentOf(d.CampaignID)
		}

		if parent != "" && parent != fund {
			top := l.fund(parent)
			top.add(d.Amount, d.NetAmount)
			top.child(fund).add(d.Amount, d.NetAmount)
		} else {
			l.fund(fund).add(d.Amount, d.NetAmount)
		}
	}
	return l
}

func (l *Ledger) fund(name string) *Bucket {
	b, ok := l.Funds[name]
	if !ok {
		b = &Bucket{}
		l.Funds[name] = b
	}
	return b
}
