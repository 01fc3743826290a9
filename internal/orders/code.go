package orders

import (
	"fmt"
	"time"
)

const (
	orderCodeDateLayout = "060102"
	maxCodeAttempts     = 3
)

// FormatOrderCode renders <prefix><yymmdd><seq6> for the local calendar day.
func FormatOrderCode(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%06d", prefix, day.Format(orderCodeDateLayout), seq)
}

// sequenceDay is the order_sequences key for t in loc.
func sequenceDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(orderCodeDateLayout)
}
