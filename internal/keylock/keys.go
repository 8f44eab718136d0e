package keylock

// Entity keys shared by the event handlers and the sync strategies. Callers
// that hold several keys acquire them in the order order, offer, product.

// OfferKey is the key of a marketplace offer.
func OfferKey(remoteOfferID string) string { return "offer:" + remoteOfferID }

// OrderKey is the key of a marketplace order.
func OrderKey(remoteOrderID string) string { return "order:" + remoteOrderID }

// ProductKey is the key of a local product.
func ProductKey(productID string) string { return "product:" + productID }
