package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"baz-car-admin/internal/model"
)

const (
	dateLayout  = "2006-01-02"
	nbsp        = "\u00a0"
	rubleSuffix = " ₽"
)

// QuoteInput is everything the calculator needs. Services holds the add-ons
// that matched the requested service_ids, active or not.
type QuoteInput struct {
	Car              model.Car
	PickupDate       string
	ReturnDate       string
	DeliveryOptionID *string
	Services         []model.AdditionalService
	CustomerName     string
	CustomerPhone    string
	CustomerEmail    *string
	WhatsAppNumber   string
}

type Quote struct {
	model.BookingResponse
	Message string
}

// RentalDays returns the whole days between two YYYY-MM-DD dates. The
// return date must come after pickup.
func RentalDays(pickup string, ret string) (int, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(pickup))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid pickup date %q", model.ErrInvalidDateRange, pickup)
	}

	end, err := time.Parse(dateLayout, strings.TrimSpace(ret))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid return date %q", model.ErrInvalidDateRange, ret)
	}

	if !end.After(start) {
		return 0, model.ErrInvalidDateRange
	}

	return max(1, int(end.Sub(start).Hours()/24)), nil
}

// CalculateQuote prices a rental and renders the WhatsApp message for it.
func CalculateQuote(in QuoteInput) (Quote, error) {
	days, err := RentalDays(in.PickupDate, in.ReturnDate)
	if err != nil {
		return Quote{}, err
	}

	dailyPrice := in.Car.DailyRate(days)
	rentalCost := dailyPrice * int64(days)

	var delivery model.DeliveryOption
	if in.DeliveryOptionID != nil {
		delivery, _ = model.LookupDeliveryOption(*in.DeliveryOptionID)
	}

	type addonLine struct {
		label  string
		amount int64
	}

	var (
		addonsTotal int64
		addonLines  []addonLine
	)
	for _, svc := range in.Services {
		if !svc.IsActive || svc.Fee == nil {
			continue
		}
		amount := svc.Fee.Contribution(rentalCost, days)
		addonsTotal += amount
		addonLines = append(addonLines, addonLine{label: svc.Label, amount: amount})
	}

	total := rentalCost + delivery.Price + addonsTotal

	lines := []string{
		"Здравствуйте! Я хочу оформить заказ на аренду автомобиля:\n",
		"Модель: " + in.Car.Name + "\n",
		"Период: " + strings.TrimSpace(in.PickupDate) + " - " + strings.TrimSpace(in.ReturnDate) + "\n",
		"Стоимость аренды: " + formatRubles(rentalCost),
	}
	if delivery.Price > 0 {
		lines = append(lines, "Доставка: "+delivery.Label+" (+"+formatRubles(delivery.Price)+")")
	}
	if len(addonLines) > 0 {
		lines = append(lines, "Доп. услуги:")
		for _, l := range addonLines {
			lines = append(lines, " - "+l.label+": +"+formatRubles(l.amount))
		}
	}
	lines = append(lines,
		"",
		"Итого: "+formatRubles(total),
		"",
		"Контактная информация:",
		"Имя: "+in.CustomerName,
		"Телефон: "+in.CustomerPhone,
	)
	if in.CustomerEmail != nil && strings.TrimSpace(*in.CustomerEmail) != "" {
		lines = append(lines, "Email: "+*in.CustomerEmail)
	}

	message := strings.Join(lines, "\n")

	return Quote{
		BookingResponse: model.BookingResponse{
			TotalPrice:   total,
			RentalDays:   days,
			DailyPrice:   dailyPrice,
			WhatsAppLink: whatsAppLink(in.WhatsAppNumber, message),
			Breakdown: model.BookingBreakdown{
				RentalCost:      rentalCost,
				DeliveryPrice:   delivery.Price,
				AdditionalTotal: addonsTotal,
			},
		},
		Message: message,
	}, nil
}

// whatsAppLink percent-encodes everything except unreserved characters and
// '/', so dates like 01/06 stay readable in the link.
func whatsAppLink(number string, message string) string {
	escaped := strings.NewReplacer("+", "%20", "%2F", "/").Replace(url.QueryEscape(message))
	return "https://wa.me/" + number + "?text=" + escaped
}

// formatRubles renders 12345 as "12\u00a0345 ₽": thousands groups are
// separated by a non-breaking space.
func formatRubles(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(nbsp)
		}
		b.WriteRune(r)
	}
	b.WriteString(rubleSuffix)
	return b.String()
}
