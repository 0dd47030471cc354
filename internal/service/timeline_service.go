package service

import (
	"context"
	"time"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/pagination"
	"github.com/d60-Lab/newsfeed/internal/repository"
)

// TimelineItem inbox 条目 + 帖子内容
type TimelineItem struct {
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TimelineService 读 inbox 并按帖子 id 批量补全内容
type TimelineService struct {
	inbox repository.InboxRepository
	posts repository.PostRepository
	users repository.UserRepository
}

func NewTimelineService(inbox repository.InboxRepository, posts repository.PostRepository, users repository.UserRepository) *TimelineService {
	return &TimelineService{inbox: inbox, posts: posts, users: users}
}

// GetTimeline 按 occurred_at DESC, post_id DESC 分页。
// 帖子已删除的条目在补全时被丢弃，但游标仍按原始行推进。
func (s *TimelineService) GetTimeline(ctx context.Context, ownerID, cursor string, limit int) (pagination.Page[TimelineItem], error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[TimelineItem]{}, err
	}
	ok, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return pagination.Page[TimelineItem]{}, err
	}
	if !ok {
		return pagination.Page[TimelineItem]{}, apperr.NotFound("user %s not found", ownerID)
	}

	limit = pagination.ClampLimit(limit)
	rows, err := s.inbox.ListTimeline(ctx, ownerID, cur, limit+1)
	if err != nil {
		return pagination.Page[TimelineItem]{}, err
	}

	page := pagination.Page[TimelineItem]{Items: make([]TimelineItem, 0, min(len(rows), limit))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.Encode(last.Score, last.PostID)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PostID
	}
	posts, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return pagination.Page[TimelineItem]{}, err
	}
	for _, r := range rows {
		p, ok := posts[r.PostID]
		if !ok {
			continue
		}
		page.Items = append(page.Items, TimelineItem{
			PostID:     r.PostID,
			AuthorID:   p.AuthorID,
			Content:    p.Content,
			OccurredAt: r.OccurredAt.UTC(),
		})
	}
	return page, nil
}
