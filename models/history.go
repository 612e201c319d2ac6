package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// History records that a user opened a book. There is one row per
// (user, book) pair; repeat visits only move LastReadAt forward.
type History struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user" json:"userId"`
	BookID     primitive.ObjectID `bson:"book" json:"bookId"`
	LastReadAt time.Time          `bson:"lastReadAt" json:"lastReadAt"`
}

// HistoryWithBook is a history row with its book populated. Book is nil when
// the book has since been deleted.
type HistoryWithBook struct {
	History `bson:",inline"`
	Book    *Book `bson:"bookInfo,omitempty" json:"book,omitempty"`
}
