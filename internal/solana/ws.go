package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of a single
	// signature. The returned channel delivers at most one notification
	// and is closed afterwards; signature subscriptions are one-shot on
	// the server side.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is delivered when a subscribed signature
// reaches confirmed commitment.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
