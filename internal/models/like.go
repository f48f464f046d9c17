package models

import (
	"fmt"
	"time"
)

// TargetKind names the kind of entity a Like points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetTweet   TargetKind = "tweet"
)

// LikeTarget is the entity a Like points at. Its fields are unexported so a
// target always carries exactly one kind and one id.
type LikeTarget struct {
	kind TargetKind
	id   string
}

// VideoTarget returns a LikeTarget for a video.
func VideoTarget(id string) LikeTarget { return LikeTarget{kind: TargetVideo, id: id} }

// CommentTarget returns a LikeTarget for a comment.
func CommentTarget(id string) LikeTarget { return LikeTarget{kind: TargetComment, id: id} }

// TweetTarget returns a LikeTarget for a tweet.
func TweetTarget(id string) LikeTarget { return LikeTarget{kind: TargetTweet, id: id} }

// ParseLikeTarget builds a target from its persisted or wire representation.
func ParseLikeTarget(kind, id string) (LikeTarget, error) {
	if id == "" {
		return LikeTarget{}, fmt.Errorf("like target: empty id")
	}
	switch TargetKind(kind) {
	case TargetVideo, TargetComment, TargetTweet:
		return LikeTarget{kind: TargetKind(kind), id: id}, nil
	default:
		return LikeTarget{}, fmt.Errorf("like target: unknown kind %q", kind)
	}
}

// Kind reports which entity type the target refers to.
func (t LikeTarget) Kind() TargetKind { return t.kind }

// ID returns the referenced entity id.
func (t LikeTarget) ID() string { return t.id }

// IsZero reports whether the target was never set.
func (t LikeTarget) IsZero() bool { return t.kind == "" }

func (t LikeTarget) String() string { return string(t.kind) + ":" + t.id }

// Like is an edge from an account to exactly one target.
type Like struct {
	ID        string
	AccountID string
	Target    LikeTarget
	CreatedAt time.Time
}
