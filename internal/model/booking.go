package model

type BookingRequest struct {
	CarID                int64    `json:"car_id"`
	PickupDate           string   `json:"pickup_date"`
	ReturnDate           string   `json:"return_date"`
	DeliveryOptionID     *string  `json:"delivery_option_id"`
	AdditionalServiceIDs []string `json:"additional_service_ids"`
	CustomerName         string   `json:"customer_name"`
	CustomerPhone        string   `json:"customer_phone"`
	CustomerEmail        *string  `json:"customer_email"`
}

type BookingBreakdown struct {
	RentalCost      int64 `json:"rental_cost"`
	DeliveryPrice   int64 `json:"delivery_price"`
	AdditionalTotal int64 `json:"additional_total"`
}

type BookingResponse struct {
	TotalPrice   int64            `json:"total_price"`
	RentalDays   int              `json:"rental_days"`
	DailyPrice   int64            `json:"daily_price"`
	WhatsAppLink string           `json:"whatsapp_link"`
	Breakdown    BookingBreakdown `json:"breakdown"`
}

type DeliveryOption struct {
	ID    string
	Label string
	Price int64
}

var deliveryOptions = map[string]DeliveryOption{
	"pickup":  {ID: "pickup", Label: "Самовывоз", Price: 0},
	"city":    {ID: "city", Label: "Доставка по городу", Price: 700},
	"airport": {ID: "airport", Label: "Доставка в аэропорт", Price: 1000},
}

// LookupDeliveryOption returns the delivery option for key. Unknown keys
// report false.
func LookupDeliveryOption(key string) (DeliveryOption, bool) {
	opt, ok := deliveryOptions[key]
	return opt, ok
}
