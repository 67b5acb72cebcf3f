package forum

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors are the
// form field names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// messages keyed by validation tag
var tagMessages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"max":      "Ensure this value has fewer characters.",
	"eqfield":  "Passwords did not match.",
}

// messages keyed by namespace and tag, overriding tagMessages
var fieldMessages = map[string]string{
	"CommentInput.comment.required": "This field is required",
}

// validateForm checks s against its validate tags and returns FormErrors or nil
func validateForm(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := FormErrors{}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), translate(fe))
	}
	return errs
}

func translate(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Namespace()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "Enter a valid value."
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Email     string `form:"email" validate:"required,email,max=254"`
	FirstName string `form:"first_name" validate:"required,max=150"`
	Username  string `form:"username" validate:"required,max=150"`
	Password  string `form:"password" validate:"required"`
}

// LoginInput is the login form. Username carries the email address.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// TopicInput is the topic create and update form
type TopicInput struct {
	Title       string `form:"title" validate:"required,max=2000"`
	Category    string `form:"category" validate:"required"`
	SubCategory string `form:"sub_category"`
	Description string `form:"description" validate:"required"`
	Tags        string `form:"tags"`
}

// CommentInput is the comment create and edit form
type CommentInput struct {
	Topic         int64  `form:"topic"`
	Comment       string `form:"comment" validate:"required"`
	Parent        string `form:"parent"`
	MentionedUser string `form:"mentioned_user"`
}

// CategoryInput is the dashboard category form. Flags arrive as "True"/"False".
type CategoryInput struct {
	Title       string `form:"title" validate:"required,max=1000"`
	Description string `form:"description"`
	Color       string `form:"color" validate:"max=20"`
	IsActive    string `form:"is_active"`
	IsVotable   string `form:"is_votable"`
	Parent      string `form:"parent"`
}

// BadgeInput is the dashboard badge form
type BadgeInput struct {
	Title string `form:"title" validate:"required,max=50"`
}

// ChangePasswordInput is used by both the dashboard and the user change
// password forms. OldPassword is only checked on the dashboard.
type ChangePasswordInput struct {
	OldPassword    string `form:"oldpassword"`
	NewPassword    string `form:"newpassword" validate:"required"`
	RetypePassword string `form:"retypepassword" validate:"required"`
}

// ForgotPasswordInput is the password reset request form
type ForgotPasswordInput struct {
	Email string `form:"email" validate:"required,email"`
}

// formTrue reports whether a form flag is the literal "True"
func formTrue(v string) bool {
	return v == "True" || v == "true" || v == "on"
}

// checkForm validates s and returns the field errors collected so far.
// The returned FormErrors is never nil so callers can keep adding to it.
func checkForm(s interface{}) (FormErrors, error) {
	err := validateForm(s)
	if err == nil {
		return FormErrors{}, nil
	}
	fe, ok := err.(FormErrors)
	if !ok {
		return nil, err
	}
	return fe, nil
}
