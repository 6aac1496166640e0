package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/models"
	"github.com/smartsim-dev/smartsim/internal/routes"
	"github.com/smartsim-dev/smartsim/internal/session"
	"github.com/smartsim-dev/smartsim/internal/validation"
)

// Notices shown after a redirect, looked up by the "notice" query parameter
var notices = map[string]string{
	"signed-out":       "You have been signed out.",
	"customer-updated": "Customer profile updated! The customer can start sending messages.",
	"profile-updated":  "Profile updated.",
}

// pageData is what every page template receives
type pageData struct {
	Title   string
	Session models.Session
	Form    any
	Errors  map[string]string
	Notice  string
	Error   string
	Credits *int
}

func (s *Server) page(c *gin.Context, title string, form any) pageData {
	snapshot, ok := GetSession(c)
	if !ok {
		snapshot = s.manager.Snapshot()
	}
	return pageData{
		Title:   title,
		Session: snapshot,
		Form:    form,
		Errors:  map[string]string{},
		Notice:  notices[c.Query("notice")],
	}
}

// fieldErrors copies validation messages into data, reporting whether err was one
func fieldErrors(data *pageData, err error) bool {
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	data.Errors = verrs.Fields
	return true
}

func redirectWithNotice(c *gin.Context, path, notice string) {
	c.Redirect(http.StatusSeeOther, path+"?"+url.Values{"notice": {notice}}.Encode())
}

func (s *Server) staticPage(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, s.page(c, title, nil))
	}
}

func (s *Server) signInPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageSignIn, s.page(c, "Sign in", flows.SignInForm{}))
}

func (s *Server) signIn(c *gin.Context) {
	var form flows.SignInForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		c.HTML(http.StatusBadRequest, pageSignIn, s.page(c, "Sign in", flows.SignInForm{}))
		return
	}

	err := s.flows.SignIn(c.Request.Context(), form)
	if err == nil {
		c.Redirect(http.StatusSeeOther, routes.PathDashboard)
		return
	}

	data := s.page(c, "Sign in", flows.SignInForm{Email: form.Email})
	if fieldErrors(&data, err) {
		c.HTML(http.StatusUnprocessableEntity, pageSignIn, data)
		return
	}

	s.logger.Warn().Err(err).Str(requestIDKey, c.GetString(requestIDKey)).Msg("Sign in failed")
	data.Error = "Authentication failed. Check your credentials."
	c.HTML(http.StatusUnauthorized, pageSignIn, data)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.flows.SignOut(c.Request.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign out")
		c.HTML(http.StatusInternalServerError, pageSignIn, pageData{
			Title:  "Sign in",
			Form:   flows.SignInForm{},
			Errors: map[string]string{},
			Error:  "Could not sign out, try again.",
		})
		return
	}
	redirectWithNotice(c, routes.PathSignIn, "signed-out")
}

func (s *Server) dashboardData(c *gin.Context, form flows.SendForm) pageData {
	data := s.page(c, "Dashboard", form)

	credits, err := s.flows.FetchBalance(c.Request.Context())
	if err != nil {
		s.logger.Warn().Err(err).Str(requestIDKey, c.GetString(requestIDKey)).Msg("Failed to fetch balance")
		return data
	}
	data.Credits = &credits
	return data
}

func (s *Server) dashboardPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageDashboard, s.dashboardData(c, flows.SendForm{}))
}

func (s *Server) sendSMS(c *gin.Context) {
	var form flows.SendForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		c.HTML(http.StatusBadRequest, pageDashboard, s.dashboardData(c, flows.SendForm{}))
		return
	}

	report, err := s.flows.SendSMS(c.Request.Context(), form)

	var status int
	var data pageData
	switch {
	case err == nil:
		// Clear the form once the message is queued
		data = s.dashboardData(c, flows.SendForm{})
		data.Notice = report.Outcome.Message()
		status = http.StatusOK
	case fieldErrors(&data, err):
		errs := data.Errors
		data = s.dashboardData(c, form)
		data.Errors = errs
		status = http.StatusUnprocessableEntity
	case report.Outcome == flows.OutcomeFailed:
		data = s.dashboardData(c, form)
		data.Error = report.Outcome.Message()
		status = http.StatusBadGateway
	default:
		data = s.dashboardData(c, form)
		data.Error = report.Outcome.Message()
		status = http.StatusOK
	}

	c.HTML(status, pageDashboard, data)
}

func (s *Server) balance(c *gin.Context) {
	credits, err := s.flows.FetchBalance(c.Request.Context())
	if err != nil {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Failed to fetch balance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": credits})
}

func (s *Server) profileForm(c *gin.Context) flows.ProfileForm {
	user, _ := s.manager.CurrentUser()
	return flows.ProfileForm{Name: user.Name, Email: user.Email, AvatarURL: user.AvatarURL}
}

func (s *Server) profilePage(c *gin.Context) {
	c.HTML(http.StatusOK, pageProfile, s.page(c, "Profile", s.profileForm(c)))
}

func (s *Server) updateProfile(c *gin.Context) {
	var form flows.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		c.HTML(http.StatusBadRequest, pageProfile, s.page(c, "Profile", s.profileForm(c)))
		return
	}

	_, err := s.flows.UpdateProfile(c.Request.Context(), form)
	if err == nil {
		redirectWithNotice(c, routes.PathProfile, "profile-updated")
		return
	}

	data := s.page(c, "Profile", form)
	if fieldErrors(&data, err) {
		c.HTML(http.StatusUnprocessableEntity, pageProfile, data)
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, session.ErrNotAuthenticated) {
		status = http.StatusUnauthorized
	}
	s.logger.Error().Err(err).Msg("Failed to update profile")
	data.Error = "An error occurred while updating your profile, try again."
	c.HTML(status, pageProfile, data)
}

func (s *Server) updateUserPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageUpdateUser, s.page(c, "Customer SMS key", flows.UpdateUserForm{}))
}

func (s *Server) updateUser(c *gin.Context) {
	var form flows.UpdateUserForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		c.HTML(http.StatusBadRequest, pageUpdateUser, s.page(c, "Customer SMS key", flows.UpdateUserForm{}))
		return
	}

	err := s.flows.ProvisionCustomer(c.Request.Context(), form)
	if err == nil {
		redirectWithNotice(c, routes.PathDashboard, "customer-updated")
		return
	}

	data := s.page(c, "Customer SMS key", form)
	if fieldErrors(&data, err) {
		c.HTML(http.StatusUnprocessableEntity, pageUpdateUser, data)
		return
	}

	data.Error = "An error occurred while updating the customer, try again."
	c.HTML(http.StatusBadGateway, pageUpdateUser, data)
}
