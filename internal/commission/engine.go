package commission

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// paymentTermDays is the fixed delay between delivery and payment.
const paymentTermDays = 60

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// OrderLineItem is a single product row inside an order. Discounts and IPI are
// percentage points (10 means 10%); ICMSSubs is an absolute amount per unit.
type OrderLineItem struct {
	SKU       string
	Quantity  int64
	UnitValue decimal.Decimal
	DiscCom   decimal.Decimal
	DiscAdi   decimal.Decimal
	IPI       decimal.Decimal
	ICMSSubs  decimal.Decimal
}

// Order groups line items under a single order id and date.
type Order struct {
	ID         string
	Date       time.Time
	Items      []OrderLineItem
	TotalValue decimal.Decimal
}

// SKURate maps a SKU key to its commission percentage (0-100).
type SKURate struct {
	SKU        string
	Percentage decimal.Decimal
}

// DeliveryRecord holds the expected delivery date for one (order, SKU) pair.
type DeliveryRecord struct {
	OrderID          string
	SKU              string
	ExpectedDelivery time.Time
}

// Period is one of the two semi-monthly payout windows of a month. Start and
// Label together form the grouping identity.
type Period struct {
	Start time.Time `json:"periodStart"`
	End   time.Time `json:"periodEnd"`
	Label string    `json:"label"`
}

// LineItem is one resolved commission fact produced by Calculate.
type LineItem struct {
	OrderID      string          `json:"orderId"`
	OrderDate    time.Time       `json:"orderDate"`
	SKU          string          `json:"sku"`
	Quantity     int64           `json:"quantity"`
	ItemValue    decimal.Decimal `json:"itemValue"`
	Percentage   decimal.Decimal `json:"commissionPercentage"`
	Amount       decimal.Decimal `json:"commissionAmount"`
	DeliveryDate time.Time       `json:"deliveryDate"`
	PaymentDate  time.Time       `json:"paymentDate"`
	Period       Period          `json:"commissionPeriod"`
}

// PeriodSummary aggregates every line item falling into one payout period.
type PeriodSummary struct {
	Period          Period          `json:"period"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	Items           []LineItem      `json:"items"`
}

// MissingDelivery identifies a line item excluded from commission calculation
// because no delivery record exists for its (order, SKU) pair.
type MissingDelivery struct {
	OrderID   string          `json:"orderId"`
	OrderDate time.Time       `json:"orderDate"`
	SKU       string          `json:"sku"`
	Quantity  int64           `json:"quantity"`
	ItemValue decimal.Decimal `json:"itemValue"`
}

// UnitValueWithDiscounts applies both discount components as one combined
// linear discount: unit_value * (100 - (disc_com + disc_adi)) / 100.
func UnitValueWithDiscounts(item OrderLineItem) decimal.Decimal {
	combined := hundred.Sub(item.DiscCom.Add(item.DiscAdi))
	return item.UnitValue.Mul(combined).Div(hundred)
}

// TotalWithDiscounts scales the discounted unit value by quantity and rounds
// the total (not the unit value) to the nearest currency unit, half away from
// zero.
func TotalWithDiscounts(item OrderLineItem) decimal.Decimal {
	return UnitValueWithDiscounts(item).Mul(decimal.NewFromInt(item.Quantity)).Round(0)
}

// TotalWithDiscountsAndTaxes adds IPI and ICMS-substitution on top of the
// discounted unit value. IPI is rounded per unit before scaling by quantity,
// unlike the discount total which rounds only after scaling. The asymmetry is
// intentional and must not be unified.
func TotalWithDiscountsAndTaxes(item OrderLineItem) decimal.Decimal {
	unit := UnitValueWithDiscounts(item)
	unitTaxIPI := unit.Mul(item.IPI).Div(hundred).Round(0)
	perUnit := unit.Add(unitTaxIPI).Add(item.ICMSSubs)
	return decimal.NewFromInt(item.Quantity).Mul(perUnit)
}

// PaymentDate derives the payment date from a delivery date: a fixed 60
// calendar days, rolling over month and year boundaries.
func PaymentDate(deliveryDate time.Time) time.Time {
	return deliveryDate.AddDate(0, 0, paymentTermDays)
}

// PeriodFor classifies a payment date into its payout period. Payments due up
// to the 15th settle on the 16th of the same month; payments due from the 16th
// settle on the 1st of the following month (January of the next year after a
// December payment date).
func PeriodFor(paymentDate time.Time) Period {
	year, month, day := paymentDate.Date()
	loc := paymentDate.Location()

	if day <= 15 {
		return Period{
			Start: time.Date(year, month, 16, 0, 0, 0, 0, loc),
			End:   time.Date(year, month+1, 0, 0, 0, 0, 0, loc),
			Label: "16 de " + monthNames[month-1],
		}
	}

	start := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return Period{
		Start: start,
		End:   time.Date(year, month+1, 15, 0, 0, 0, 0, loc),
		Label: "1 de " + monthNames[start.Month()-1],
	}
}

// LabelForStart derives the canonical label from a period start date. Start
// and label always agree under PeriodFor; this helper lets callers identify a
// period by its start alone.
func LabelForStart(start time.Time) string {
	if start.Day() == 16 {
		return "16 de " + monthNames[start.Month()-1]
	}
	return "1 de " + monthNames[start.Month()-1]
}

// Equal reports whether two periods share the same grouping identity.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.Label == other.Label
}

type deliveryKey struct {
	OrderID string
	SKU     string
}

// RateTable builds a SKU lookup from the rate list. Duplicate SKU keys resolve
// last write wins.
func RateTable(rates []SKURate) map[string]decimal.Decimal {
	table := make(map[string]decimal.Decimal, len(rates))
	for _, rate := range rates {
		table[rate.SKU] = rate.Percentage
	}
	return table
}

func deliveryIndex(records []DeliveryRecord) map[deliveryKey]time.Time {
	index := make(map[deliveryKey]time.Time, len(records))
	for _, record := range records {
		index[deliveryKey{OrderID: record.OrderID, SKU: record.SKU}] = record.ExpectedDelivery
	}
	return index
}

// Calculate resolves one commission line item per order line that has a
// delivery record. Items without a delivery record are skipped, not reported
// as errors; MissingDeliveries surfaces the complement. A SKU without a
// configured rate yields a 0% line item. Output preserves input iteration
// order: orders first, then items within each order.
func Calculate(orders []Order, rates []SKURate, deliveries []DeliveryRecord) []LineItem {
	rateTable := RateTable(rates)
	index := deliveryIndex(deliveries)

	items := make([]LineItem, 0, len(orders))
	for _, order := range orders {
		for _, item := range order.Items {
			deliveryDate, ok := index[deliveryKey{OrderID: order.ID, SKU: item.SKU}]
			if !ok {
				continue
			}
			percentage := rateTable[item.SKU]
			paymentDate := PaymentDate(deliveryDate)
			itemValue := TotalWithDiscounts(item)
			items = append(items, LineItem{
				OrderID:      order.ID,
				OrderDate:    order.Date,
				SKU:          item.SKU,
				Quantity:     item.Quantity,
				ItemValue:    itemValue,
				Percentage:   percentage,
				Amount:       itemValue.Mul(percentage).Div(hundred),
				DeliveryDate: deliveryDate,
				PaymentDate:  paymentDate,
				Period:       PeriodFor(paymentDate),
			})
		}
	}
	return items
}

// MissingDeliveries returns the order lines Calculate skips: every
// (order, item) pair with no matching delivery record, in input order.
func MissingDeliveries(orders []Order, deliveries []DeliveryRecord) []MissingDelivery {
	index := deliveryIndex(deliveries)

	var missing []MissingDelivery
	for _, order := range orders {
		for _, item := range order.Items {
			if _, ok := index[deliveryKey{OrderID: order.ID, SKU: item.SKU}]; ok {
				continue
			}
			missing = append(missing, MissingDelivery{
				OrderID:   order.ID,
				OrderDate: order.Date,
				SKU:       item.SKU,
				Quantity:  item.Quantity,
				ItemValue: TotalWithDiscounts(item),
			})
		}
	}
	return missing
}

// GroupByPeriod partitions line items by period identity, sums commission
// amounts per group, and returns the groups sorted ascending by period start.
// Items keep their input order within each group.
func GroupByPeriod(items []LineItem) []PeriodSummary {
	type groupKey struct {
		start int64
		label string
	}

	groups := make(map[groupKey]*PeriodSummary)
	order := make([]groupKey, 0)
	for _, item := range items {
		key := groupKey{start: item.Period.Start.UnixNano(), label: item.Period.Label}
		summary, ok := groups[key]
		if !ok {
			summary = &PeriodSummary{Period: item.Period, TotalCommission: decimal.Zero}
			groups[key] = summary
			order = append(order, key)
		}
		summary.Items = append(summary.Items, item)
		summary.TotalCommission = summary.TotalCommission.Add(item.Amount)
	}

	summaries := make([]PeriodSummary, 0, len(groups))
	for _, key := range order {
		summaries = append(summaries, *groups[key])
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Period.Start.Before(summaries[j].Period.Start)
	})
	return summaries
}

// FilterByPeriod returns the subsequence of items whose period matches the
// given one exactly (same start instant and same label).
func FilterByPeriod(items []LineItem, period Period) []LineItem {
	filtered := make([]LineItem, 0)
	for _, item := range items {
		if item.Period.Equal(period) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
