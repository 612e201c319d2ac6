package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingEntry is one rating embedded in a book document. Authenticated
// raters are keyed by UserID, anonymous raters by RatedByIP.
type RatingEntry struct {
	UserID    *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	RatedByIP string              `bson:"ratedByIp,omitempty" json:"ratedByIp,omitempty"`
	Rating    int                 `bson:"rating" json:"rating"`
}

// RaterIdentity identifies who submitted a rating. UserID is set for
// authenticated requests; IP is always set.
type RaterIdentity struct {
	UserID primitive.ObjectID
	IP     string
}

func (ri RaterIdentity) Anonymous() bool { return ri.UserID.IsZero() }

type Book struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title              string             `bson:"title" json:"title"`
	Author             string             `bson:"author" json:"author"`
	Genres             GenreList          `bson:"genre" json:"genre"`
	Summary            string             `bson:"summary,omitempty" json:"summary,omitempty"`
	OwnerID            primitive.ObjectID `bson:"owner" json:"owner"`
	Public             bool               `bson:"isPublic" json:"isPublic"`
	CoverKey           string             `bson:"coverKey,omitempty" json:"-"` // object key in S3
	FileKey            string             `bson:"fileKey,omitempty" json:"-"`  // object key in S3
	OriginalName       string             `bson:"originalName,omitempty" json:"originalName,omitempty"`
	Ratings            []RatingEntry      `bson:"ratings" json:"ratings"`
	AverageRating      float64            `bson:"averageRating" json:"averageRating"`
	NumberOfRatings    int                `bson:"numberOfRatings" json:"numberOfRatings"`
	UniqueReadersCount int                `bson:"uniqueReadersCount" json:"uniqueReadersCount"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`

	// Serving paths derived from the object keys, never stored.
	CoverURL string `bson:"-" json:"coverUrl,omitempty"`
	FileURL  string `bson:"-" json:"fileUrl,omitempty"`
}

// DeriveURLs fills the serving paths for the stored cover and file, if any.
func (b *Book) DeriveURLs() {
	if b.CoverKey != "" {
		b.CoverURL = "/api/books/" + b.ID.Hex() + "/cover"
	}
	if b.FileKey != "" {
		b.FileURL = "/api/books/" + b.ID.Hex() + "/file"
	}
}

// ApplyRating records value for the given identity and recomputes the
// aggregates. An authenticated rater matches only their own earlier entry;
// an anonymous rater matches earlier anonymous entries from the same IP.
// Matches are overwritten in place, otherwise a new entry is appended.
func (b *Book) ApplyRating(id RaterIdentity, value int) {
	idx := -1
	for i := range b.Ratings {
		e := &b.Ratings[i]
		if !id.Anonymous() {
			if e.UserID != nil && *e.UserID == id.UserID {
				idx = i
				break
			}
		} else if e.UserID == nil && e.RatedByIP == id.IP {
			idx = i
			break
		}
	}

	if idx >= 0 {
		// Overwrites refresh the recorded IP as well. Anonymous matching
		// skips entries with a user id, so this never merges raters.
		b.Ratings[idx].Rating = value
		b.Ratings[idx].RatedByIP = id.IP
	} else {
		entry := RatingEntry{Rating: value}
		if id.Anonymous() {
			entry.RatedByIP = id.IP
		} else {
			uid := id.UserID
			entry.UserID = &uid
		}
		b.Ratings = append(b.Ratings, entry)
	}

	b.recomputeRating()
}

func (b *Book) recomputeRating() {
	b.NumberOfRatings = len(b.Ratings)
	if b.NumberOfRatings == 0 {
		b.AverageRating = 0
		return
	}
	sum := 0
	for _, e := range b.Ratings {
		sum += e.Rating
	}
	b.AverageRating = float64(sum) / float64(b.NumberOfRatings)
}

// BookWithOwner is a book with its owner reference populated.
type BookWithOwner struct {
	Book  `bson:",inline"`
	Owner *UserRef `bson:"ownerInfo,omitempty" json:"ownerInfo,omitempty"`
}

func (b *BookWithOwner) DeriveURLs() {
	b.Book.DeriveURLs()
	if b.Owner != nil && b.Owner.ProfileImage != "" {
		b.Owner.ProfileImageURL = "/api/users/" + b.Owner.ID.Hex() + "/profile-image"
	}
}
