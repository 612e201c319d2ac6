package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Collection struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	OwnerID   primitive.ObjectID   `bson:"owner" json:"owner"`
	BookIDs   []primitive.ObjectID `bson:"books" json:"bookIds"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// Contains reports whether bookID is already a member.
func (c *Collection) Contains(bookID primitive.ObjectID) bool {
	for _, id := range c.BookIDs {
		if id == bookID {
			return true
		}
	}
	return false
}

// CollectionWithBooks is a collection with its member references resolved to
// full book documents, in member order.
type CollectionWithBooks struct {
	Collection `bson:",inline"`
	Books      []Book `bson:"-" json:"books"`
}
