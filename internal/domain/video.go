package domain

import "time"

// Video is a trending food video from the YouTube most-popular chart.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    uint64    `json:"view_count"`
	LikeCount    *uint64   `json:"like_count,omitempty"`
	VideoURL     string    `json:"video_url"`
}
