package models

// ChannelProfile is the denormalized public view of a channel.
type ChannelProfile struct {
	ID                string `json:"id"`
	Handle            string `json:"handle"`
	DisplayName       string `json:"displayName"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverURL          string `json:"coverImage"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// WatchedVideo is a watch-history entry with its owner's public summary.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// ChannelStats aggregates dashboard counters for a channel owner.
type ChannelStats struct {
	SubscribersCount int64 `json:"subscribersCount"`
	VideosCount      int64 `json:"videosCount"`
	LikesCount       int64 `json:"likesCount"`
	ViewsCount       int64 `json:"viewsCount"`
}
