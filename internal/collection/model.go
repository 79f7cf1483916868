package collection

import "time"

const (
	ListCollection = "collection"
	ListWishlist   = "wishlist"
)

// Item is one saved movie in a user's collection or wishlist.
type Item struct {
	ID         string    `json:"id"`
	MovieID    int64     `json:"movieId"`
	Title      string    `json:"title"`
	PosterPath string    `json:"posterPath"`
	List       string    `json:"-"`
	AddedAt    time.Time `json:"addedAt"`
}

type ItemInput struct {
	MovieID    int64  `json:"movieId"`
	Title      string `json:"title"`
	PosterPath string `json:"posterPath"`
}
