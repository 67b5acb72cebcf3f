package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/view"
)

// index is the topic list. Admins land on the dashboard instead.
func (r *Router) index(c *gin.Context) {
	viewer := currentViewer(c)
	if viewer.IsAdmin() {
		c.Redirect(http.StatusFound, auth.DashboardPath)
		return
	}
	ctx := c.Request.Context()
	topics, pg, err := r.forum.TopicsPage(ctx, viewer.User, pageNumber(c))
	if err != nil {
		r.fail(c, err)
		return
	}
	sidebar, err := r.forum.Sidebar(ctx)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "index.html", gin.H{
		"Title":   "Topics",
		"Topics":  topics,
		"Sidebar": sidebar,
		"Page":    pg.Page,
		"HasPrev": pg.HasPrev,
		"HasNext": pg.HasNext,
	})
}

func (r *Router) viewTopic(c *gin.Context) {
	detail, err := r.forum.ViewTopic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "topic.html", gin.H{
		"Title":  detail.Topic.Title,
		"Detail": detail,
	})
}

func (r *Router) categories(c *gin.Context) {
	categories, pg, err := r.forum.PublicCategories(c.Request.Context(), pageNumber(c))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "categories.html", gin.H{
		"Title":      "Categories",
		"Categories": categories,
		"Pagination": pg,
	})
}

// tags lists tags, filtered by first letter when alphabet_value is set
func (r *Router) tags(c *gin.Context) {
	tags, err := r.forum.Tags(c.Request.Context(), formValue(c, "alphabet_value"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "tags.html", gin.H{
		"Title":   "Tags",
		"Tags":    tags,
		"Letters": view.Letters,
	})
}

func (r *Router) badges(c *gin.Context) {
	badges, err := r.forum.Badges(c.Request.Context(), formValue(c, "alphabet_value"), "")
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "badges.html", gin.H{
		"Title":   "Badges",
		"Badges":  badges,
		"Letters": view.Letters,
	})
}

func (r *Router) category(c *gin.Context) {
	category, topics, err := r.forum.CategoryTopics(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "category.html", gin.H{
		"Title":    category.Title,
		"Category": category,
		"Topics":   topics,
	})
}

func (r *Router) tag(c *gin.Context) {
	tag, topics, err := r.forum.TagTopics(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "tag.html", gin.H{
		"Title":  tag.Title,
		"Tag":    tag,
		"Topics": topics,
	})
}

// userProfile is the public profile of user_name
func (r *Router) userProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := r.forum.GetUserByName(ctx, c.Param("user_name"))
	if err != nil {
		r.fail(c, err)
		return
	}
	summary, err := r.forum.Profile(ctx, user)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   user.Username,
		"Summary": summary,
		"Own":     currentViewer(c).Owns(user.ID),
	})
}

// mentionedUsers feeds the @mention autocomplete of a topic page
func (r *Router) mentionedUsers(c *gin.Context) {
	topicID, err := pathID(c, "topic_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	candidates, err := r.forum.MentionCandidates(c.Request.Context(), topicID)
	if err != nil {
		r.fail(c, err)
		return
	}
	if candidates == nil {
		candidates = []forum.MentionCandidate{}
	}
	c.JSON(http.StatusOK, gin.H{"data": candidates})
}
