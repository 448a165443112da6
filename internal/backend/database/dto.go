package database

type ImageRecord struct {
	ID   int64  `json:"id"`
	Tags string `json:"tags"`
}
