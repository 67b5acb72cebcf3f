package forum

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/models"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

const (
	editDenied   = "Only Commented User Can edit this comment"
	deleteDenied = "Only commented user can delete this comment"
)

// AddComment posts a comment on a topic, notifies the topic's participants
// and the mentioned users, and records the activity.
func (s *Service) AddComment(ctx context.Context, user *models.User, in CommentInput) (*models.Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.AddComment")
	defer span.End()

	errs, err := checkForm(&in)
	if err != nil {
		return nil, err
	}

	topic, err := db.NewTopicRepository(s.repo).GetByID(ctx, in.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		errs.Add("topic", invalidChoice)
	}
	var parentID *int64
	if topic != nil {
		parentID, err = s.resolveParent(ctx, topic.ID, in.Parent, 0, errs)
		if err != nil {
			return nil, err
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	mentioned, err := s.resolveMentions(ctx, in.MentionedUser)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comment := &models.Comment{
		Body:          in.Comment,
		CommentedByID: user.ID,
		TopicID:       topic.ID,
		ParentID:      parentID,
		CreatedOn:     now,
		UpdatedOn:     now,
		Mentioned:     mentioned,
	}
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := db.NewCommentRepository(tx).Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return s.record(ctx, tx, user.ID, models.TargetComment, comment.ID,
			models.NamespaceCommentCreate, models.EventCommentCreate)
	})
	if err != nil {
		return nil, err
	}
	comment.CommentedBy = user
	telemetry.RecordComment(ctx)

	s.notifyComment(ctx, topic, comment)
	return comment, nil
}

// EditComment replaces the body and mentions of the author's comment. The
// parent only changes when one is submitted.
func (s *Service) EditComment(ctx context.Context, user *models.User, commentID int64, in CommentInput) (*models.Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.EditComment")
	defer span.End()

	comments := db.NewCommentRepository(s.repo)
	comment, err := comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	if comment.CommentedByID != user.ID {
		return nil, &Denied{Reason: editDenied}
	}

	errs, err := checkForm(&in)
	if err != nil {
		return nil, err
	}
	parentID, err := s.resolveParent(ctx, comment.TopicID, in.Parent, comment.ID, errs)
	if err != nil {
		return nil, err
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	mentioned, err := s.resolveMentions(ctx, in.MentionedUser)
	if err != nil {
		return nil, err
	}

	comment.Body = in.Comment
	if parentID != nil {
		comment.ParentID = parentID
	}
	comment.UpdatedOn = s.now()
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		txComments := db.NewCommentRepository(tx)
		if err := txComments.Save(ctx, comment); err != nil {
			return fmt.Errorf("failed to save comment: %w", err)
		}
		if err := txComments.ReplaceMentions(ctx, comment, mentioned); err != nil {
			return fmt.Errorf("failed to replace mentions: %w", err)
		}
		return s.record(ctx, tx, user.ID, models.TargetComment, comment.ID,
			models.NamespaceCommentEdit, models.EventCommentEdit)
	})
	if err != nil {
		return nil, err
	}
	comment.Mentioned = mentioned
	return comment, nil
}

// DeleteComment removes the author's comment together with every reply below it
func (s *Service) DeleteComment(ctx context.Context, user *models.User, commentID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeleteComment")
	defer span.End()

	comments := db.NewCommentRepository(s.repo)
	comment, err := comments.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return ErrNotFound
	}
	if comment.CommentedByID != user.ID {
		return &Denied{Reason: deleteDenied}
	}

	all, err := comments.ListByTopic(ctx, comment.TopicID)
	if err != nil {
		return fmt.Errorf("failed to load topic comments: %w", err)
	}
	ids := append([]int64{comment.ID}, Descendants(all, comment.ID)...)
	return s.repo.Transaction(ctx, func(tx *db.Repository) error {
		return db.NewCommentRepository(tx).DeleteRows(ctx, ids)
	})
}

// resolveParent parses the parent field. An empty value means a top level
// comment. The parent must exist on the same topic and must not be self.
func (s *Service) resolveParent(ctx context.Context, topicID int64, raw string, selfID int64, errs FormErrors) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == selfID {
		errs.Add("parent", invalidChoice)
		return nil, nil
	}
	parent, err := db.NewCommentRepository(s.repo).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent comment: %w", err)
	}
	if parent == nil || parent.TopicID != topicID {
		errs.Add("parent", invalidChoice)
		return nil, nil
	}
	// a parent inside the comment's own subtree would close a cycle
	if selfID != 0 {
		all, err := db.NewCommentRepository(s.repo).ListByTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to load topic comments: %w", err)
		}
		for _, d := range Descendants(all, selfID) {
			if d == id {
				errs.Add("parent", invalidChoice)
				return nil, nil
			}
		}
	}
	return &id, nil
}

func (s *Service) resolveMentions(ctx context.Context, text string) ([]models.User, error) {
	handles := ParseMentions(text)
	if len(handles) == 0 {
		return nil, nil
	}
	users, err := db.NewUserRepository(s.repo).ListByUsernames(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mentions: %w", err)
	}
	if len(users) < len(handles) {
		s.logger.Debug("Dropped unknown mentions",
			zap.Strings("handles", handles), zap.Int("resolved", len(users)))
	}
	return users, nil
}

// ParseMentions splits comma separated "@handle" text into bare handles
func ParseMentions(text string) []string {
	seen := make(map[string]bool)
	var handles []string
	for _, raw := range strings.Split(text, ",") {
		handle := strings.Trim(strings.TrimSpace(raw), "@")
		handle = strings.TrimSpace(handle)
		if handle == "" || seen[handle] {
			continue
		}
		seen[handle] = true
		handles = append(handles, handle)
	}
	return handles
}

// Descendants returns the ids of every comment below rootID, depth first.
// Each comment is visited once, so cyclic parent links terminate.
func Descendants(comments []models.Comment, rootID int64) []int64 {
	children := make(map[int64][]int64, len(comments))
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	visited := map[int64]bool{rootID: true}
	var out []int64
	stack := append([]int64(nil), reverse(children[rootID])...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
		stack = append(stack, reverse(children[id])...)
	}
	return out
}

func reverse(ids []int64) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// CommentNode is a comment with its replies
type CommentNode struct {
	Comment  models.Comment
	Children []*CommentNode
	Depth    int
}

// CommentTree arranges a topic's comments into threads. Comments whose parent
// is missing become roots; a comment already placed is never placed again.
func CommentTree(comments []models.Comment) []*CommentNode {
	byID := make(map[int64]int, len(comments))
	for i, c := range comments {
		byID[c.ID] = i
	}
	children := make(map[int64][]int)
	var roots []int
	for i, c := range comments {
		if c.ParentID != nil {
			if _, ok := byID[*c.ParentID]; ok && *c.ParentID != c.ID {
				children[*c.ParentID] = append(children[*c.ParentID], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	placed := make(map[int64]bool, len(comments))
	var build func(i, depth int) *CommentNode
	build = func(i, depth int) *CommentNode {
		c := comments[i]
		placed[c.ID] = true
		node := &CommentNode{Comment: c, Depth: depth}
		for _, ci := range children[c.ID] {
			if placed[comments[ci].ID] {
				continue
			}
			node.Children = append(node.Children, build(ci, depth+1))
		}
		return node
	}

	var tree []*CommentNode
	for _, i := range roots {
		tree = append(tree, build(i, 0))
	}
	// comments only reachable through a parent cycle
	for i, c := range comments {
		if !placed[c.ID] {
			tree = append(tree, build(i, 0))
		}
	}
	return tree
}

// MentionCandidate is one entry of the mention autocompletion list
type MentionCandidate struct {
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

// MentionCandidates lists the topic's participants for mention autocompletion
func (s *Service) MentionCandidates(ctx context.Context, topicID int64) ([]MentionCandidate, error) {
	topic, err := db.NewTopicRepository(s.repo).GetByID(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	if topic == nil {
		return nil, ErrNotFound
	}
	users, err := s.Participants(ctx, topic)
	if err != nil {
		return nil, err
	}
	candidates := make([]MentionCandidate, 0, len(users))
	for i := range users {
		candidates = append(candidates, MentionCandidate{
			Username: users[i].MentionHandle(),
			Fullname: users[i].Email,
		})
	}
	return candidates, nil
}
