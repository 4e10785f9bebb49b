package models

// Cross-service event payloads consumed from the broker. Producers live in
// the user and collection services; delivery is at least once, so every
// field needed for de-duplication travels with the event.

type UserCreatedEvent struct {
	UserID string `json:"userId"`
}

type CollectionCancelledEvent struct {
	UserID       string `json:"userId"`
	CollectionID string `json:"collectionId"`
	Amount       int64  `json:"amount"`
}
