package social

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type memoryGraph struct {
	accounts map[string]models.Account
	videos   map[string]models.Video
	subs     map[[2]string]bool
	likes    map[string]map[string]bool
	tweets   map[string]models.Tweet
	comments map[string]models.Comment
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		accounts: map[string]models.Account{},
		videos:   map[string]models.Video{},
		subs:     map[[2]string]bool{},
		likes:    map[string]map[string]bool{},
		tweets:   map[string]models.Tweet{},
		comments: map[string]models.Comment{},
	}
}

type accountFinder struct{ g *memoryGraph }

func (f accountFinder) FindByID(_ context.Context, id string) (models.Account, error) {
	a, ok := f.g.accounts[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return a, nil
}

type videoFinder struct{ g *memoryGraph }

func (f videoFinder) FindByID(_ context.Context, id string) (models.Video, error) {
	v, ok := f.g.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return v, nil
}

type subscriptionStore struct{ g *memoryGraph }

func (s subscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	key := [2]string{subscriberID, channelID}
	if s.g.subs[key] {
		delete(s.g.subs, key)
		return false, nil
	}
	s.g.subs[key] = true
	return true, nil
}

func (s subscriptionStore) ListSubscribers(_ context.Context, channelID string) ([]models.OwnerSummary, error) {
	var out []models.OwnerSummary
	for edge := range s.g.subs {
		if edge[1] == channelID {
			out = append(out, summary(s.g.accounts[edge[0]]))
		}
	}
	return out, nil
}

func (s subscriptionStore) ListSubscribedChannels(_ context.Context, subscriberID string) ([]models.OwnerSummary, error) {
	var out []models.OwnerSummary
	for edge := range s.g.subs {
		if edge[0] == subscriberID {
			out = append(out, summary(s.g.accounts[edge[1]]))
		}
	}
	return out, nil
}

type likeStore struct{ g *memoryGraph }

func (l likeStore) TargetExists(_ context.Context, target models.LikeTarget) (bool, error) {
	switch target.Kind() {
	case models.TargetVideo:
		_, ok := l.g.videos[target.ID()]
		return ok, nil
	case models.TargetTweet:
		_, ok := l.g.tweets[target.ID()]
		return ok, nil
	case models.TargetComment:
		_, ok := l.g.comments[target.ID()]
		return ok, nil
	}
	return false, nil
}

func (l likeStore) Toggle(_ context.Context, accountID string, target models.LikeTarget) (bool, error) {
	set := l.g.likes[accountID]
	if set == nil {
		set = map[string]bool{}
		l.g.likes[accountID] = set
	}
	key := target.String()
	if set[key] {
		delete(set, key)
		return false, nil
	}
	set[key] = true
	return true, nil
}

func (l likeStore) LikedVideos(_ context.Context, accountID string) ([]models.WatchedVideo, error) {
	var out []models.WatchedVideo
	for key := range l.g.likes[accountID] {
		for id, v := range l.g.videos {
			if key == models.VideoTarget(id).String() {
				out = append(out, models.WatchedVideo{Video: v, Owner: summary(l.g.accounts[v.OwnerID])})
			}
		}
	}
	return out, nil
}

type tweetStore struct{ g *memoryGraph }

func (t tweetStore) Create(_ context.Context, tweet models.Tweet) error {
	t.g.tweets[tweet.ID] = tweet
	return nil
}

func (t tweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	tweet, ok := t.g.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (t tweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	var out []models.Tweet
	for _, tweet := range t.g.tweets {
		if tweet.OwnerID == ownerID {
			out = append(out, tweet)
		}
	}
	return out, nil
}

func (t tweetStore) UpdateContent(_ context.Context, id, content string) (models.Tweet, error) {
	tweet, ok := t.g.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Content = content
	t.g.tweets[id] = tweet
	return tweet, nil
}

func (t tweetStore) Delete(_ context.Context, id string) error {
	if _, ok := t.g.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(t.g.tweets, id)
	return nil
}

type commentStore struct{ g *memoryGraph }

func (c commentStore) Create(_ context.Context, comment models.Comment) error {
	c.g.comments[comment.ID] = comment
	return nil
}

func (c commentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := c.g.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (c commentStore) ListByVideo(_ context.Context, videoID string, offset, limit int) ([]models.Comment, int64, error) {
	var all []models.Comment
	for _, comment := range c.g.comments {
		if comment.VideoID == videoID {
			all = append(all, comment)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (c commentStore) UpdateContent(_ context.Context, id, content string) (models.Comment, error) {
	comment, ok := c.g.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	c.g.comments[id] = comment
	return comment, nil
}

func (c commentStore) Delete(_ context.Context, id string) error {
	if _, ok := c.g.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(c.g.comments, id)
	return nil
}

type recordingStats struct{ owners []string }

func (r *recordingStats) Invalidate(ownerID string) { r.owners = append(r.owners, ownerID) }

func summary(a models.Account) models.OwnerSummary {
	return models.OwnerSummary{ID: a.ID, Handle: a.Handle, DisplayName: a.DisplayName, AvatarURL: a.AvatarURL}
}

func newTestService() (*Service, *memoryGraph, *recordingStats) {
	g := newMemoryGraph()
	for _, id := range []string{"alice", "bob", "carol"} {
		g.accounts[id] = models.Account{ID: id, Handle: id, DisplayName: id}
	}
	g.videos["v1"] = models.Video{ID: "v1", OwnerID: "bob", Title: "bob's video", Published: true}
	stats := &recordingStats{}
	svc := NewService(Deps{
		Accounts:      accountFinder{g},
		Videos:        videoFinder{g},
		Subscriptions: subscriptionStore{g},
		Likes:         likeStore{g},
		Tweets:        tweetStore{g},
		Comments:      commentStore{g},
		Stats:         stats,
	})
	return svc, g, stats
}

func TestToggleSubscriptionRoundTrip(t *testing.T) {
	svc, _, stats := newTestService()
	ctx := context.Background()

	subscribed, err := svc.ToggleSubscription(ctx, "alice", "bob")
	if err != nil || !subscribed {
		t.Fatalf("expected subscribed, got %v %v", subscribed, err)
	}

	subscribers, err := svc.ChannelSubscribers(ctx, "bob")
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if len(subscribers) != 1 || subscribers[0].Handle != "alice" {
		t.Fatalf("unexpected subscribers %+v", subscribers)
	}

	subscribed, err = svc.ToggleSubscription(ctx, "alice", "bob")
	if err != nil || subscribed {
		t.Fatalf("expected unsubscribed, got %v %v", subscribed, err)
	}

	channels, err := svc.SubscribedChannels(ctx, "alice")
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if channels == nil || len(channels) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", channels)
	}
	if len(stats.owners) != 2 || stats.owners[0] != "bob" {
		t.Fatalf("expected stats invalidated for bob twice, got %v", stats.owners)
	}
}

func TestToggleSubscriptionRejects(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.ToggleSubscription(ctx, "alice", "alice"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for self subscription, got %v", err)
	}
	if _, err := svc.ToggleSubscription(ctx, "alice", "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ToggleSubscription(ctx, "alice", " "); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ChannelSubscribers(ctx, "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	svc, _, stats := newTestService()
	ctx := context.Background()

	liked, err := svc.ToggleLike(ctx, "alice", models.VideoTarget("v1"))
	if err != nil || !liked {
		t.Fatalf("expected liked, got %v %v", liked, err)
	}
	if len(stats.owners) != 1 || stats.owners[0] != "bob" {
		t.Fatalf("expected stats invalidated for bob, got %v", stats.owners)
	}

	videos, err := svc.LikedVideos(ctx, "alice")
	if err != nil {
		t.Fatalf("liked videos: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "v1" || videos[0].Owner.Handle != "bob" {
		t.Fatalf("unexpected liked videos %+v", videos)
	}

	liked, err = svc.ToggleLike(ctx, "alice", models.VideoTarget("v1"))
	if err != nil || liked {
		t.Fatalf("expected unliked, got %v %v", liked, err)
	}

	if _, err := svc.ToggleLike(ctx, "alice", models.TweetTarget("missing")); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing tweet, got %v", err)
	}
	if _, err := svc.ToggleLike(ctx, "alice", models.LikeTarget{}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty target, got %v", err)
	}

	empty, err := svc.LikedVideos(ctx, "carol")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v %v", empty, err)
	}
}

func TestTweetLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateTweet(ctx, "alice", ContentInput{Content: "   "}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	tweet, err := svc.CreateTweet(ctx, "alice", ContentInput{Content: " hello "})
	if err != nil {
		t.Fatalf("create tweet: %v", err)
	}
	if tweet.Content != "hello" {
		t.Fatalf("expected trimmed content, got %q", tweet.Content)
	}

	if _, err := svc.UpdateTweet(ctx, tweet.ID, "bob", ContentInput{Content: "mine now"}); apperr.ReasonOf(err) != apperr.ReasonForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := svc.UpdateTweet(ctx, tweet.ID, "alice", ContentInput{Content: "edited"})
	if err != nil || updated.Content != "edited" {
		t.Fatalf("update tweet: %+v %v", updated, err)
	}

	liked, err := svc.ToggleLike(ctx, "bob", models.TweetTarget(tweet.ID))
	if err != nil || !liked {
		t.Fatalf("expected tweet liked, got %v %v", liked, err)
	}

	tweets, err := svc.AccountTweets(ctx, "alice")
	if err != nil || len(tweets) != 1 {
		t.Fatalf("list tweets: %+v %v", tweets, err)
	}

	if err := svc.DeleteTweet(ctx, tweet.ID, "bob"); apperr.ReasonOf(err) != apperr.ReasonForbidden {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := svc.DeleteTweet(ctx, tweet.ID, "alice"); err != nil {
		t.Fatalf("delete tweet: %v", err)
	}
	if _, err := svc.Tweet(ctx, tweet.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCommentsPaging(t *testing.T) {
	svc, g, _ := newTestService()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		if _, err := svc.AddComment(ctx, "v1", "alice", ContentInput{Content: "comment"}); err != nil {
			t.Fatalf("add comment: %v", err)
		}
	}

	page, err := svc.VideoComments(ctx, "v1", 1, 2)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Comments) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.Comments[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected newest comment first, got %v", page.Comments[0].CreatedAt)
	}

	second, err := svc.VideoComments(ctx, "v1", 2, 2)
	if err != nil || len(second.Comments) != 1 {
		t.Fatalf("second page: %+v %v", second, err)
	}

	if _, err := svc.VideoComments(ctx, "v1", 1, 101); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.VideoComments(ctx, "missing", 1, 10); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AddComment(ctx, "missing", "alice", ContentInput{Content: "x"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	comment := page.Comments[0]
	if _, err := svc.UpdateComment(ctx, comment.ID, "bob", ContentInput{Content: "nope"}); apperr.ReasonOf(err) != apperr.ReasonForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.DeleteComment(ctx, comment.ID, "alice"); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if _, ok := g.comments[comment.ID]; ok {
		t.Fatal("expected comment removed")
	}
}
