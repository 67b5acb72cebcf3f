package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/forum"
)

const dashboardHome = "/dashboard/topics/list/"

// dashboardLoginPage sends admins on to the dashboard and other users back to the forum
func (r *Router) dashboardLoginPage(c *gin.Context) {
	viewer := currentViewer(c)
	switch {
	case viewer.IsAdmin():
		c.Redirect(http.StatusFound, dashboardHome)
	case viewer.IsAuthenticated():
		c.Redirect(http.StatusFound, auth.HomePath)
	default:
		r.render(c, http.StatusOK, "dashboard_login.html", gin.H{"Title": "Dashboard login"})
	}
}

func (r *Router) dashboardLogin(c *gin.Context) {
	var in forum.LoginInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	user, err := r.forum.AuthenticateAdmin(c.Request.Context(), in)
	if err != nil {
		r.fail(c, err)
		return
	}
	if !r.startSession(c, user) {
		return
	}
	success(c, "You have successfully logged into the dashboard", nil)
}

// Categories

func (r *Router) dashboardCategories(c *gin.Context) {
	search := formValue(c, "search_text")
	categories, err := r.forum.DashboardCategories(c.Request.Context(), formValue(c, "is_active") == "True", search)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_categories.html", gin.H{
		"Title":      "Categories",
		"Categories": categories,
		"Search":     search,
	})
}

func (r *Router) categoryAddPage(c *gin.Context) {
	parents, err := r.forum.AllCategories(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_category_form.html", gin.H{
		"Title":   "Add category",
		"Parents": parents,
	})
}

func (r *Router) categoryAdd(c *gin.Context) {
	var in forum.CategoryInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if _, err := r.forum.CreateCategory(c.Request.Context(), currentViewer(c).User, in); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Created Category", nil)
}

func (r *Router) categoryEditPage(c *gin.Context) {
	ctx := c.Request.Context()
	category, err := r.forum.GetCategory(ctx, c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	parents, err := r.forum.AllCategories(ctx)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_category_form.html", gin.H{
		"Title":    "Edit " + category.Title,
		"Category": category,
		"Parents":  parents,
	})
}

func (r *Router) categoryEdit(c *gin.Context) {
	var in forum.CategoryInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if _, err := r.forum.UpdateCategory(c.Request.Context(), c.Param("slug"), in); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Edited Category", nil)
}

func (r *Router) categoryDelete(c *gin.Context) {
	if err := r.forum.DeleteCategory(c.Request.Context(), c.Param("slug")); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Category", nil)
}

func (r *Router) categoryView(c *gin.Context) {
	detail, err := r.forum.ViewCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_category.html", gin.H{
		"Title":  detail.Category.Title,
		"Detail": detail,
	})
}

// Badges

func (r *Router) dashboardBadges(c *gin.Context) {
	search := formValue(c, "search_text")
	badges, err := r.forum.Badges(c.Request.Context(), "", search)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_badges.html", gin.H{
		"Title":  "Badges",
		"Badges": badges,
		"Search": search,
	})
}

func (r *Router) badgeAddPage(c *gin.Context) {
	r.render(c, http.StatusOK, "dashboard_badge_form.html", gin.H{"Title": "Add badge"})
}

func (r *Router) badgeAdd(c *gin.Context) {
	var in forum.BadgeInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if _, err := r.forum.CreateBadge(c.Request.Context(), in); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Created Badge", nil)
}

func (r *Router) badgeEditPage(c *gin.Context) {
	badge, err := r.forum.GetBadge(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_badge_form.html", gin.H{
		"Title": "Edit " + badge.Title,
		"Badge": badge,
	})
}

func (r *Router) badgeEdit(c *gin.Context) {
	var in forum.BadgeInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if _, err := r.forum.UpdateBadge(c.Request.Context(), c.Param("slug"), in); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Edited Badge", nil)
}

func (r *Router) badgeDelete(c *gin.Context) {
	if err := r.forum.DeleteBadge(c.Request.Context(), c.Param("slug")); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Badge", nil)
}

func (r *Router) badgeView(c *gin.Context) {
	detail, err := r.forum.ViewBadge(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_badge.html", gin.H{
		"Title":  detail.Badge.Title,
		"Detail": detail,
	})
}

// Users

func (r *Router) dashboardUsers(c *gin.Context) {
	search := formValue(c, "search_text")
	users, err := r.forum.ListUsers(c.Request.Context(), search)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_users.html", gin.H{
		"Title":  "Users",
		"Users":  users,
		"Search": search,
	})
}

func (r *Router) userDelete(c *gin.Context) {
	id, err := pathID(c, "user_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	if err := r.forum.DeleteUser(c.Request.Context(), currentViewer(c).User, id); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted User", nil)
}

func (r *Router) userStatus(c *gin.Context) {
	id, err := pathID(c, "user_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	active, err := r.forum.ToggleUserStatus(c.Request.Context(), id)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Updated User Status", gin.H{"is_active": active})
}

func (r *Router) userView(c *gin.Context) {
	summary, ok := r.userSummary(c)
	if !ok {
		return
	}
	r.render(c, http.StatusOK, "dashboard_user.html", gin.H{
		"Title":   summary.User.Username,
		"Summary": summary,
	})
}

func (r *Router) userSummary(c *gin.Context) (*forum.ProfileSummary, bool) {
	id, err := pathID(c, "user_id")
	if err != nil {
		r.fail(c, err)
		return nil, false
	}
	ctx := c.Request.Context()
	user, err := r.forum.GetUser(ctx, id)
	if err != nil {
		r.fail(c, err)
		return nil, false
	}
	summary, err := r.forum.Profile(ctx, user)
	if err != nil {
		r.fail(c, err)
		return nil, false
	}
	return summary, true
}

func (r *Router) userBadgesPage(c *gin.Context) {
	summary, ok := r.userSummary(c)
	if !ok {
		return
	}
	badges, err := r.forum.Badges(c.Request.Context(), "", "")
	if err != nil {
		r.fail(c, err)
		return
	}
	held := make(map[int64]bool)
	if summary.Profile != nil {
		for _, b := range summary.Profile.Badges {
			held[b.ID] = true
		}
	}
	r.render(c, http.StatusOK, "dashboard_user_badges.html", gin.H{
		"Title":  "Badges for " + summary.User.Username,
		"User":   summary.User,
		"Badges": badges,
		"Held":   held,
	})
}

func (r *Router) userBadges(c *gin.Context) {
	id, err := pathID(c, "user_id")
	if err != nil {
		r.fail(c, err)
		return
	}
	raw := c.PostFormArray("badges")
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		badgeID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(c, forum.FormErrors{"badges": {`"` + v + `" is not a valid value for a primary key.`}})
			return
		}
		ids = append(ids, badgeID)
	}
	if err := r.forum.SetUserBadges(c.Request.Context(), id, ids); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Edited User", nil)
}

// Topics

func (r *Router) dashboardTopics(c *gin.Context) {
	search := formValue(c, "search_text")
	topics, pg, err := r.forum.DashboardTopicsPage(c.Request.Context(), search, pageNumber(c))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_topics.html", gin.H{
		"Title":      "Topics",
		"Topics":     topics,
		"Search":     search,
		"Pagination": pg,
	})
}

func (r *Router) dashboardTopicDelete(c *gin.Context) {
	if err := r.forum.AdminDeleteTopic(c.Request.Context(), c.Param("slug")); err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Deleted Topic", nil)
}

func (r *Router) dashboardTopicView(c *gin.Context) {
	detail, err := r.forum.GetTopicDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "dashboard_topic.html", gin.H{
		"Title":  detail.Topic.Title,
		"Detail": detail,
	})
}

func (r *Router) topicStatus(c *gin.Context) {
	status, err := r.forum.RotateTopicStatus(c.Request.Context(), c.Param("slug"))
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully Updated Topic Status", gin.H{"status": status})
}
