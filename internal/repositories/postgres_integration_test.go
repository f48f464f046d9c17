package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresAccountRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresAccountRepository(testPool)
	account := createTestAccount(t, repo, "alice")

	dupEmail := newTestAccount("alice2")
	dupEmail.Email = account.Email
	if err := repo.Create(ctx, dupEmail); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	dupHandle := newTestAccount("alice")
	dupHandle.Email = "other@example.com"
	if err := repo.Create(ctx, dupHandle); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate handle, got %v", err)
	}

	byHandle, err := repo.FindByLogin(ctx, "ALICE")
	if err != nil {
		t.Fatalf("find by handle: %v", err)
	}
	byEmail, err := repo.FindByLogin(ctx, account.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byHandle.ID != account.ID || byEmail.ID != account.ID {
		t.Fatalf("expected both lookups to return %s, got %s and %s", account.ID, byHandle.ID, byEmail.ID)
	}
	if byHandle.RefreshToken != "" || len(byHandle.WatchHistory) != 0 {
		t.Fatalf("expected empty session state, got %+v", byHandle)
	}

	exists, err := repo.ExistsByHandleOrEmail(ctx, "nobody", account.Email)
	if err != nil || !exists {
		t.Fatalf("expected existing email to be reported, got %v %v", exists, err)
	}

	updated, err := repo.UpdateDetails(ctx, account.ID, "Alice B", "alice.b@example.com")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if updated.DisplayName != "Alice B" || updated.Email != "alice.b@example.com" {
		t.Fatalf("unexpected updated account %+v", updated)
	}

	bob := createTestAccount(t, repo, "bob")
	if _, err := repo.UpdateDetails(ctx, bob.ID, "Bob", "alice.b@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when taking another email, got %v", err)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestPostgresAccountRepository_SwapMediaAndWatchHistory(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresAccountRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	account := createTestAccount(t, repo, "carol")

	previous, err := repo.SwapAvatar(ctx, account.ID, "https://media.local/avatars/new.png")
	if err != nil {
		t.Fatalf("swap avatar: %v", err)
	}
	if previous != account.AvatarURL {
		t.Fatalf("expected previous avatar %q got %q", account.AvatarURL, previous)
	}

	previous, err = repo.SwapCover(ctx, account.ID, "https://media.local/covers/c.png")
	if err != nil || previous != "" {
		t.Fatalf("expected empty previous cover, got %q %v", previous, err)
	}

	v1 := createTestVideo(t, videos, account.ID, "one", true)
	v2 := createTestVideo(t, videos, account.ID, "two", true)
	v3 := createTestVideo(t, videos, account.ID, "three", true)

	for _, id := range []string{v1.ID, v3.ID, v2.ID, v3.ID, v1.ID, v2.ID, v3.ID} {
		if err := repo.RecordWatch(ctx, account.ID, id); err != nil {
			t.Fatalf("record watch: %v", err)
		}
	}

	stored, err := repo.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	want := []string{v1.ID, v2.ID, v3.ID}
	if len(stored.WatchHistory) != len(want) {
		t.Fatalf("expected history %v got %v", want, stored.WatchHistory)
	}
	for i := range want {
		if stored.WatchHistory[i] != want[i] {
			t.Fatalf("expected history %v got %v", want, stored.WatchHistory)
		}
	}

	if err := repo.UpdatePassword(ctx, account.ID, "rotated-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if err := repo.UpdatePassword(ctx, uuid.NewString(), "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestPostgresSessionStore_CompareAndRotate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountRepository(testPool)
	store := NewPostgresSessionStore(testPool)
	account := createTestAccount(t, accounts, "dave")

	if err := store.Rotate(ctx, account.ID, "token-1"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := store.CompareAndRotate(ctx, account.ID, "stale", "token-2"); !errors.Is(err, auth.ErrSessionMismatch) {
		t.Fatalf("expected mismatch for stale token, got %v", err)
	}
	if err := store.CompareAndRotate(ctx, uuid.NewString(), "token-1", "token-2"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected session not found for unknown account, got %v", err)
	}

	const attempts = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.CompareAndRotate(ctx, account.ID, "token-1", fmt.Sprintf("next-%d", i))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", wins)
	}

	if err := store.Clear(ctx, account.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err := accounts.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatalf("expected cleared token, got %q", stored.RefreshToken)
	}
}

func TestPostgresVideoRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountRepository(testPool)
	repo := NewPostgresVideoRepository(testPool)
	owner := createTestAccount(t, accounts, "erin")
	other := createTestAccount(t, accounts, "frank")

	cats := createTestVideo(t, repo, owner.ID, "cats compilation", true)
	dogs := createTestVideo(t, repo, owner.ID, "dogs compilation", true)
	createTestVideo(t, repo, owner.ID, "cats draft", false)
	createTestVideo(t, repo, other.ID, "cats elsewhere", true)

	if _, err := repo.IncrementViews(ctx, dogs.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	page, total, err := repo.List(ctx, VideoQuery{Search: "cats", OwnerID: owner.ID, SortBy: "createdAt", Descending: true, Limit: 10})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if total != 1 || len(page) != 1 || page[0].ID != cats.ID {
		t.Fatalf("expected only the published owner match, got total=%d %+v", total, page)
	}

	page, total, err = repo.List(ctx, VideoQuery{SortBy: "views", Descending: true, Limit: 1})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].ID != dogs.ID {
		t.Fatalf("expected most viewed video first, got total=%d %+v", total, page)
	}

	likes := NewPostgresLikeRepository(testPool)
	if _, err := likes.Toggle(ctx, other.ID, models.VideoTarget(cats.ID)); err != nil {
		t.Fatalf("like: %v", err)
	}

	if err := repo.Delete(ctx, cats.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if _, err := repo.FindByID(ctx, cats.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted video to be gone, got %v", err)
	}
	liked, err := likes.LikedVideos(ctx, other.ID)
	if err != nil {
		t.Fatalf("liked videos: %v", err)
	}
	if len(liked) != 0 {
		t.Fatalf("expected likes of deleted video to be removed, got %+v", liked)
	}

	byOwner, err := repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 2 {
		t.Fatalf("expected 2 remaining owner videos, got %d", len(byOwner))
	}
}

func TestPostgresSocialRepositories_ToggleAndViews(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	likes := NewPostgresLikeRepository(testPool)
	viewStore := NewPostgresViewStore(testPool)

	channel := createTestAccount(t, accounts, "gina")
	fan := createTestAccount(t, accounts, "hank")
	video := createTestVideo(t, videos, channel.ID, "hello", true)

	subscribed, err := subs.Toggle(ctx, fan.ID, channel.ID)
	if err != nil || !subscribed {
		t.Fatalf("expected subscribe, got %v %v", subscribed, err)
	}

	count, err := viewStore.CountSubscribers(ctx, channel.ID)
	if err != nil || count != 1 {
		t.Fatalf("expected one subscriber, got %d %v", count, err)
	}
	isSub, err := viewStore.IsSubscribed(ctx, fan.ID, channel.ID)
	if err != nil || !isSub {
		t.Fatalf("expected fan to be subscribed, got %v %v", isSub, err)
	}

	subscribers, err := subs.ListSubscribers(ctx, channel.ID)
	if err != nil || len(subscribers) != 1 || subscribers[0].ID != fan.ID {
		t.Fatalf("unexpected subscribers %+v %v", subscribers, err)
	}

	subscribed, err = subs.Toggle(ctx, fan.ID, channel.ID)
	if err != nil || subscribed {
		t.Fatalf("expected unsubscribe, got %v %v", subscribed, err)
	}
	count, _ = viewStore.CountSubscribers(ctx, channel.ID)
	if count != 0 {
		t.Fatalf("expected no subscribers after second toggle, got %d", count)
	}

	if _, err := subs.Toggle(ctx, fan.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound subscribing to a missing channel, got %v", err)
	}

	target := models.VideoTarget(video.ID)
	exists, err := likes.TargetExists(ctx, target)
	if err != nil || !exists {
		t.Fatalf("expected like target to exist, got %v %v", exists, err)
	}
	liked, err := likes.Toggle(ctx, fan.ID, target)
	if err != nil || !liked {
		t.Fatalf("expected like, got %v %v", liked, err)
	}

	if _, err := videos.IncrementViews(ctx, video.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	now := time.Now().UTC()
	tweet := models.Tweet{ID: uuid.NewString(), OwnerID: channel.ID, Content: "new upload", CreatedAt: now, UpdatedAt: now}
	if err := NewPostgresTweetRepository(testPool).Create(ctx, tweet); err != nil {
		t.Fatalf("create tweet: %v", err)
	}
	comment := models.Comment{ID: uuid.NewString(), VideoID: video.ID, OwnerID: channel.ID, Content: "pinned", CreatedAt: now, UpdatedAt: now}
	if err := NewPostgresCommentRepository(testPool).Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	for _, other := range []models.LikeTarget{models.TweetTarget(tweet.ID), models.CommentTarget(comment.ID)} {
		if liked, err := likes.Toggle(ctx, fan.ID, other); err != nil || !liked {
			t.Fatalf("expected %s like, got %v %v", other.Kind(), liked, err)
		}
	}

	likeCount, err := viewStore.CountVideoLikes(ctx, channel.ID)
	if err != nil || likeCount != 1 {
		t.Fatalf("expected only the video like to count, got %d %v", likeCount, err)
	}
	views, err := viewStore.SumVideoViews(ctx, channel.ID)
	if err != nil || views != 1 {
		t.Fatalf("expected one view, got %d %v", views, err)
	}

	entries, err := viewStore.VideosWithOwners(ctx, []string{video.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("videos with owners: %v", err)
	}
	if len(entries) != 1 || entries[0].Owner.Handle != channel.Handle {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestPostgresTogglesSurviveConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	likes := NewPostgresLikeRepository(testPool)
	viewStore := NewPostgresViewStore(testPool)

	channel := createTestAccount(t, accounts, "nora")
	fan := createTestAccount(t, accounts, "otto")
	video := createTestVideo(t, videos, channel.ID, "race", true)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*writers)
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := likes.Toggle(ctx, fan.ID, models.VideoTarget(video.ID)); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := subs.Toggle(ctx, fan.ID, channel.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent toggle: %v", err)
	}

	// An even number of toggles leaves both edges absent.
	if count, err := viewStore.CountVideoLikes(ctx, channel.ID); err != nil || count != 0 {
		t.Fatalf("expected no likes, got %d %v", count, err)
	}
	if count, err := viewStore.CountSubscribers(ctx, channel.ID); err != nil || count != 0 {
		t.Fatalf("expected no subscribers, got %d %v", count, err)
	}
}

func TestPostgresPostRepositories(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	accounts := NewPostgresAccountRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	tweets := NewPostgresTweetRepository(testPool)
	comments := NewPostgresCommentRepository(testPool)

	author := createTestAccount(t, accounts, "ivy")
	video := createTestVideo(t, videos, author.ID, "talk", true)
	now := time.Now().UTC()

	tweet := models.Tweet{ID: uuid.NewString(), OwnerID: author.ID, Content: "first", CreatedAt: now, UpdatedAt: now}
	if err := tweets.Create(ctx, tweet); err != nil {
		t.Fatalf("create tweet: %v", err)
	}
	updated, err := tweets.UpdateContent(ctx, tweet.ID, "edited")
	if err != nil || updated.Content != "edited" {
		t.Fatalf("update tweet: %+v %v", updated, err)
	}
	if err := tweets.Delete(ctx, tweet.ID); err != nil {
		t.Fatalf("delete tweet: %v", err)
	}
	if err := tweets.Delete(ctx, tweet.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	for i := 0; i < 3; i++ {
		comment := models.Comment{
			ID:        uuid.NewString(),
			VideoID:   video.ID,
			OwnerID:   author.ID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now,
		}
		if err := comments.Create(ctx, comment); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}

	page, total, err := comments.ListByVideo(ctx, video.ID, 0, 2)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if total != 3 || len(page) != 2 || page[0].Content != "comment 2" {
		t.Fatalf("unexpected comment page total=%d %+v", total, page)
	}

	orphan := models.Comment{ID: uuid.NewString(), VideoID: uuid.NewString(), OwnerID: author.ID, Content: "x", CreatedAt: now, UpdatedAt: now}
	if err := comments.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for comment on missing video, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE likes, comments, tweets, subscriptions, videos, accounts CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func newTestAccount(handle string) models.Account {
	now := time.Now().UTC()
	return models.Account{
		ID:           uuid.NewString(),
		Handle:       handle,
		Email:        handle + "@example.com",
		DisplayName:  handle,
		PasswordHash: "password-hash",
		AvatarURL:    "https://media.local/avatars/" + handle + ".png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func createTestAccount(t *testing.T, repo *PostgresAccountRepository, handle string) models.Account {
	t.Helper()
	account := newTestAccount(handle)
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("create test account: %v", err)
	}
	return account
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		Description:  title + " description",
		VideoURL:     "https://media.local/videos/" + title + ".mp4",
		ThumbnailURL: "https://media.local/thumbnails/" + title + ".png",
		Duration:     12.5,
		Published:    published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
