package models

// CreateSongRequest represents the request body for creating a new song.
type CreateSongRequest struct {
	Name            string `json:"name" binding:"required"`
	CelebrationType string `json:"celebrationType" binding:"required"`
	Style           string `json:"style" binding:"required"`
	Prompt          string `json:"prompt,omitempty"`
	// VisitorID identifies an anonymous caller. Ignored when the request is
	// authenticated.
	VisitorID string `json:"visitorId,omitempty"`
}

// SaveSongRequest represents the request body for saving a song's chosen
// variations. The song's status is never taken from the client; completion is
// driven solely by the generation callback.
type SaveSongRequest struct {
	Variations []SongVariation `json:"variations,omitempty"`
}

// CheckoutRequest represents the request body for initializing a payment.
type CheckoutRequest struct {
	PackageID string `json:"packageId" binding:"required"`
	Locale    string `json:"locale,omitempty"`
}

// GenerationCallbackRequest is the asynchronous notification sent by the
// music generation provider. Code != 200 or missing Data is a validation
// failure.
type GenerationCallbackRequest struct {
	Code int                     `json:"code"`
	Msg  string                  `json:"msg,omitempty"`
	Data *GenerationCallbackData `json:"data"`
}

// GenerationCallbackData carries the task correlation id, the provider's
// callback type vocabulary and the produced variations.
type GenerationCallbackData struct {
	TaskID       string                   `json:"task_id"`
	CallbackType string                   `json:"callbackType"`
	Data         []GenerationCallbackItem `json:"data"`
}

// GenerationCallbackItem is one result item in a generation callback.
type GenerationCallbackItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration"` // Raw seconds
	AudioURL string  `json:"audio_url,omitempty"`
	VideoURL string  `json:"video_url,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Prompt   string  `json:"prompt,omitempty"`
	Tags     string  `json:"tags,omitempty"`
}

// PaymentWebhookEvent is a payment-gateway webhook delivery.
type PaymentWebhookEvent struct {
	ID   string                  `json:"id"`
	Type string                  `json:"type" binding:"required"`
	Data PaymentWebhookEventData `json:"data"`
}

// PaymentWebhookEventData wraps the event metadata.
type PaymentWebhookEventData struct {
	Metadata PaymentWebhookMetadata `json:"metadata"`
}

// PaymentWebhookMetadata is the gateway-attested purchase detail embedded in
// an order.paid event.
type PaymentWebhookMetadata struct {
	UserID  string `json:"userId"`
	ItemID  string `json:"itemId,omitempty"`
	Credits int    `json:"credits"`
}
