package service

import "github.com/readnest/readnest-server/models"

// Notifier fans refreshed book snapshots out to realtime subscribers.
// Delivery is fire-and-forget; implementations must not block.
type Notifier interface {
	BookRated(book *models.BookWithOwner)
	ReadersCountChanged(book *models.BookWithOwner)
}
