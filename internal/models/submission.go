package models

import "time"

// Submission is an entry into the monthly film challenge. A submission
// references either an external video link or a stored upload, never both.
type Submission struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        *string   `json:"title,omitempty"`
	WordPrompt   *string   `json:"word_prompt,omitempty"`
	VideoURL     *string   `json:"video_url,omitempty"`
	StorageKey   *string   `json:"storage_key,omitempty"`
	ThumbnailKey *string   `json:"thumbnail_key,omitempty"`
	Votes        int       `json:"votes"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// HasStoredVideo reports whether the submission owns an object in storage.
func (s *Submission) HasStoredVideo() bool {
	return s.StorageKey != nil && *s.StorageKey != ""
}
