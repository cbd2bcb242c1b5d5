package dto

type WebhookAcceptedResponse struct {
	Status     string `json:"status"`
	EventID    int64  `json:"event_id,string"`
	DeliveryID string `json:"delivery_id"`
	Duplicate  bool   `json:"duplicate"`
	Enqueued   bool   `json:"enqueued"`
}
