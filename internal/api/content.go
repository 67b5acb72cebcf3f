package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/models"
)

func (r *Router) topicAddPage(c *gin.Context) {
	roots, subs, err := r.forum.TopicCategories(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "topic_form.html", gin.H{
		"Title": "New topic",
		"Roots": roots,
		"Subs":  subs,
	})
}

func (r *Router) topicAdd(c *gin.Context) {
	var in forum.TopicInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	topic, err := r.forum.CreateTopic(c.Request.Context(), currentViewer(c).User, in)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Created Topic", gin.H{"slug": topic.Slug})
}

// topicUpdatePage shows the edit form to the creator and superusers only
func (r *Router) topicUpdatePage(c *gin.Context) {
	ctx := c.Request.Context()
	topic, err := r.forum.GetTopic(ctx, c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	if !currentViewer(c).CanManage(topic.CreatedByID) {
		c.Redirect(http.StatusFound, forum.TopicPath(topic.Slug))
		return
	}
	roots, subs, err := r.forum.TopicCategories(ctx)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "topic_form.html", gin.H{
		"Title": "Edit " + topic.Title,
		"Topic": topic,
		"Roots": roots,
		"Subs":  subs,
	})
}

func (r *Router) topicUpdate(c *gin.Context) {
	var in forum.TopicInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	topic, err := r.forum.UpdateTopic(c.Request.Context(), currentViewer(c).User, c.Param("slug"), in)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Created Topic", gin.H{"slug": topic.Slug})
}

func (r *Router) topicDelete(c *gin.Context) {
	if err := r.forum.DeleteTopic(c.Request.Context(), currentViewer(c).User, c.Param("slug")); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Topic", nil)
}

// topicLike keeps the historical response text of the like endpoint
func (r *Router) topicLike(c *gin.Context) {
	res, err := r.forum.ToggleLike(c.Request.Context(), currentViewer(c).User, c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Category", gin.H{
		"is_like":     res.IsLike,
		"no_of_likes": res.NoOfLikes,
		"no_of_users": res.NoOfUsers,
	})
}

func (r *Router) topicFollow(c *gin.Context) {
	res, err := r.forum.ToggleFollow(c.Request.Context(), currentViewer(c).User, c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Followed the topic", gin.H{"is_followed": res.IsFollowed})
}

func direction(up bool) string {
	if up {
		return models.VoteUp
	}
	return models.VoteDown
}

func voteResponse(c *gin.Context, res *forum.VoteResult) {
	c.JSON(http.StatusOK, gin.H{
		"error":      false,
		"status":     res.Status,
		"up_votes":   res.UpVotes,
		"down_votes": res.DownVotes,
	})
}

func (r *Router) topicVote(up bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := r.forum.VoteTopic(c.Request.Context(), currentViewer(c).User, c.Param("slug"), direction(up))
		if err != nil {
			r.fail(c, err)
			return
		}
		voteResponse(c, res)
	}
}

func (r *Router) commentVote(up bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "pk")
		if err != nil {
			r.fail(c, err)
			return
		}
		res, err := r.forum.VoteComment(c.Request.Context(), currentViewer(c).User, id, direction(up))
		if err != nil {
			r.fail(c, err)
			return
		}
		voteResponse(c, res)
	}
}

func (r *Router) commentAdd(c *gin.Context) {
	var in forum.CommentInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	comment, err := r.forum.AddComment(c.Request.Context(), currentViewer(c).User, in)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Created Topic", gin.H{"comment_id": comment.ID})
}

func (r *Router) commentEdit(c *gin.Context) {
	id, err := pathID(c, "comment_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	var in forum.CommentInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if _, err := r.forum.EditComment(c.Request.Context(), currentViewer(c).User, id, in); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Edited User", nil)
}

func (r *Router) commentDelete(c *gin.Context) {
	id, err := pathID(c, "comment_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	if err := r.forum.DeleteComment(c.Request.Context(), currentViewer(c).User, id); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Your Comment", nil)
}
