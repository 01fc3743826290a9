package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	dayBucketLayout   = "2006-01-02"
	monthBucketLayout = "2006-01"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Overview counts orders per dashboard bucket. New means pending and pending
// means processing, matching the storefront dashboard wording.
func (s *service) Overview(ctx context.Context, window OverviewWindow) (*Overview, error) {
	if window == "" {
		window = OverviewAll
	}
	now := s.now().In(s.loc)
	var since *time.Time
	switch window {
	case OverviewAll:
	case OverviewDaily:
		start := startOfDay(now).UTC()
		since = &start
	case OverviewMonthly:
		start := startOfMonth(now).UTC()
		since = &start
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid overview window").
			WithDetails(map[string]any{"timeFilter": window})
	}

	counts, err := s.repo.CountByStatusSince(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return &Overview{
		Window:          string(window),
		NewOrders:       counts[enums.OrderStatusPending],
		PendingOrders:   counts[enums.OrderStatusProcessing],
		DeliveredOrders: counts[enums.OrderStatusDelivered],
	}, nil
}

// Revenue sums payable amounts of non-cancelled orders into pre-filled
// buckets: days of the last week, ISO weeks of the last month, or months of
// the last year.
func (s *service) Revenue(ctx context.Context, groupBy RevenueGrouping) ([]RevenueBucket, error) {
	now := s.now().In(s.loc)
	today := startOfDay(now)

	var (
		start time.Time
		keys  []string
		keyOf func(time.Time) string
	)
	switch groupBy {
	case RevenueByWeek:
		start = today.AddDate(0, 0, -6)
		keyOf = func(t time.Time) string { return t.Format(dayBucketLayout) }
		for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
			keys = append(keys, keyOf(d))
		}
	case RevenueByMonth:
		start = today.AddDate(0, 0, -20)
		keyOf = isoWeekKey
		for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
			if key := keyOf(d); len(keys) == 0 || keys[len(keys)-1] != key {
				keys = append(keys, key)
			}
		}
	case RevenueByYear:
		start = startOfMonth(now).AddDate(0, -11, 0)
		keyOf = func(t time.Time) string { return t.Format(monthBucketLayout) }
		for m := start; !m.After(now); m = m.AddDate(0, 1, 0) {
			keys = append(keys, keyOf(m))
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid revenue grouping").
			WithDetails(map[string]any{"groupBy": groupBy})
	}

	rows, err := s.repo.RevenueRowsSince(ctx, start.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue")
	}

	buckets := make([]RevenueBucket, len(keys))
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		buckets[i] = RevenueBucket{Date: key}
		index[key] = i
	}
	for _, row := range rows {
		i, ok := index[keyOf(row.CreatedAt.In(s.loc))]
		if !ok {
			continue
		}
		buckets[i].Amount += row.TotalAmount - row.DiscountAmount + row.ShippingCost
		buckets[i].NumberOfOrders++
	}
	return buckets, nil
}
