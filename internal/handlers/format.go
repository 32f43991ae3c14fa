package handlers

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shoplite/apiserver/types"
)

// OrderView is the display form of an order in profile responses.
type OrderView struct {
	ID         string `json:"id"`
	TotalCents int64  `json:"total_cents"`
	Status     string `json:"status"`
	Phone      string `json:"phone,omitempty"`
	PlacedOn   string `json:"placed_on"`
}

func toOrderViews(orders []types.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, OrderView{
			ID:         order.ID,
			TotalCents: order.TotalCents,
			Status:     order.Status,
			Phone:      FormatPhone(order.ShippingPhone),
			PlacedOn:   FormatDate(order.CreatedAt),
		})
	}
	return views
}

// FormatDate renders a timestamp the way the storefront shows it,
// for example "Jan 2, 2006".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatPhone pretty-prints a ten digit phone number as
// "(123) 456-7890". Anything else is returned unchanged.
func FormatPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() != 10 {
		return phone
	}
	d := digits.String()
	return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
}
