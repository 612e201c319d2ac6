package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	Password     string               `bson:"password" json:"-"` // bcrypt hash
	City         string               `bson:"city,omitempty" json:"city,omitempty"`
	Country      string               `bson:"country,omitempty" json:"country,omitempty"`
	ProfileImage string               `bson:"profileImage,omitempty" json:"-"` // object key in S3
	Favorites    []primitive.ObjectID `bson:"favorites" json:"favorites"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`

	// Serving path derived from ProfileImage, never stored.
	ProfileImageURL string `bson:"-" json:"profileImage,omitempty"`
}

// DeriveURLs fills the serving path for the stored avatar, if any.
func (u *User) DeriveURLs() {
	if u.ProfileImage != "" {
		u.ProfileImageURL = "/api/users/" + u.ID.Hex() + "/profile-image"
	}
}

// UserRef is the owner projection embedded in populated book responses. It
// carries the public profile fields only.
type UserRef struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Username     string             `bson:"username" json:"username"`
	City         string             `bson:"city,omitempty" json:"city,omitempty"`
	Country      string             `bson:"country,omitempty" json:"country,omitempty"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"-"`

	ProfileImageURL string `bson:"-" json:"profileImage,omitempty"`
}
