package service

import (
	"context"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
	"github.com/d60-Lab/newsfeed/internal/repository"
)

// PostView 帖子 + 点赞数；Liked 表示当前查看者是否点过赞
type PostView struct {
	*model.Post
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}

// PostDetail 帖子详情，附带第一页评论
type PostDetail struct {
	PostView
	FollowingAuthor bool                         `json:"following_author"`
	CommentCount    int64                        `json:"comment_count"`
	Comments        pagination.Page[CommentView] `json:"comments"`
}

type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	likes    repository.LikeRepository
	follows  repository.FollowRepository
	comments *CommentService
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	likes repository.LikeRepository,
	follows repository.FollowRepository,
	comments *CommentService,
) *PostService {
	return &PostService{posts: posts, users: users, likes: likes, follows: follows, comments: comments}
}

// ListByUser 某用户的帖子，最新在前；点赞数一次 GROUP BY 取回
func (s *PostService) ListByUser(ctx context.Context, viewerID, userID, cursor string, limit int) (pagination.Page[PostView], error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	if !ok {
		return pagination.Page[PostView]{}, apperr.NotFound("user %s not found", userID)
	}

	limit = pagination.ClampLimit(limit)
	rows, err := s.posts.ListByAuthor(ctx, userID, cur, limit+1)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	ids := make([]string, 0, len(rows))
	for _, p := range rows[:min(len(rows), limit)] {
		ids = append(ids, p.ID)
	}
	counts, err := s.likes.CountMany(ctx, model.TargetPost, ids)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	liked, err := s.likedBy(ctx, viewerID, ids)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	return pagination.Build(rows, limit,
		func(p *model.Post) (int64, string) { return p.CreatedAt.UnixMicro(), p.ID },
		func(p *model.Post) PostView { return PostView{Post: p, Likes: counts[p.ID], Liked: liked[p.ID]} },
	), nil
}

// Get 帖子详情：点赞、评论首页、查看者与作者的关注关系
func (s *PostService) Get(ctx context.Context, viewerID, postID string) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	likes, err := s.likes.Count(ctx, model.TargetPost, postID)
	if err != nil {
		return nil, err
	}
	liked, err := s.likedBy(ctx, viewerID, []string{postID})
	if err != nil {
		return nil, err
	}
	following := false
	if viewerID != "" && viewerID != post.AuthorID {
		if following, err = s.follows.Exists(ctx, viewerID, post.AuthorID); err != nil {
			return nil, err
		}
	}
	count, err := s.comments.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID, "", 0)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		PostView:        PostView{Post: post, Likes: likes, Liked: liked[postID]},
		FollowingAuthor: following,
		CommentCount:    count,
		Comments:        comments,
	}, nil
}

func (s *PostService) likedBy(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	if viewerID == "" {
		return map[string]bool{}, nil
	}
	return s.likes.LikedBy(ctx, viewerID, model.TargetPost, ids)
}
