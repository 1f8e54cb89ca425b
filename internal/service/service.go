// Package service exposes the contacts service as a REST API.
package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacthub/internal/auth"
	"gitlab.com/dirk.krummacker/contacthub/internal/contacts"
	"gitlab.com/dirk.krummacker/contacthub/internal/dashboard"
	"gitlab.com/dirk.krummacker/contacthub/internal/logging"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
	"gitlab.com/dirk.krummacker/contacthub/internal/view"
	pub "gitlab.com/dirk.krummacker/contacthub/pkg/model"
	"go.uber.org/zap"
)

// Responses without a notice.
const (
	msgSignedOut      = "Signed out successfully"
	msgSignOutFailed  = "Error signing out"
	msgInvalidContact = "invalid contact"
)

// Service holds everything the HTTP handlers need.
type Service struct {
	store    store.Store
	provider *auth.Provider
	registry *dashboard.Registry
	logger   *zap.Logger
}

// New returns a service on top of the given store, session provider and view registry.
func New(st store.Store, provider *auth.Provider, registry *dashboard.Registry, logger *zap.Logger) *Service {
	return &Service{store: st, provider: provider, registry: registry, logger: logger}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Every
// request below /contacts needs a session; callers without one are redirected to /auth.
func (s *Service) SetupHttpRouter(requestLogging bool) *gin.Engine {
	router := gin.New()
	router.Use(logging.Recovery(s.logger))
	if requestLogging {
		router.Use(logging.RequestLogger(s.logger))
	} else {
		s.logger.Info("Turning off HTTP request logging.")
	}

	router.GET("/health", s.health)
	router.GET("/", s.index)
	router.GET(auth.EntryPoint, s.authEntryPoint)
	router.POST("/auth/signup", s.signUp)
	router.POST("/auth/signin", s.signIn)
	router.POST("/auth/signout", s.signOut)

	guarded := router.Group("/contacts", auth.RequireSession(s.provider))
	guarded.GET("", s.findContacts)
	guarded.POST("", s.createContact)
	guarded.PUT("/:id", s.updateContactByID)
	guarded.DELETE("/:id", s.deleteContactByID)
	guarded.PUT("/view/:mode", s.setViewMode)
	return router
}

// health answers with OK as long as the database can be reached.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func (s *Service) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"message": "database unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "ok"})
}

// index sends signed in users on to their contacts.
func (s *Service) index(c *gin.Context) {
	if _, ok := s.provider.Current(auth.TokenFrom(c)); ok {
		c.Redirect(http.StatusFound, "/contacts")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "welcome to contacthub, please sign in"})
}

// authEntryPoint is where callers without a session end up.
func (s *Service) authEntryPoint(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"message": "sign in required"})
}

// signUp creates an account from the email and password in the request's JSON and signs
// it in. The session token is returned in the body and set as a cookie.
//
// Example REST API call:
//
//	> curl http://localhost:8080/auth/signup --request "POST" --include --header "Content-Type: application/json" --data '{"email": "erika@example.com", "password": "correct horse"}'
func (s *Service) signUp(c *gin.Context) {
	var credentials pub.Credentials
	if err := c.BindJSON(&credentials); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	token, session, err := s.provider.SignUp(c.Request.Context(), credentials.Email, credentials.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidSignUp):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": err.Error()})
	case err != nil:
		s.logger.Error("sign up failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not sign up"})
	default:
		s.startSession(c, token, session)
	}
}

// signIn checks the email and password in the request's JSON and starts a session.
//
// Example REST API call:
//
//	> curl http://localhost:8080/auth/signin --request "POST" --include --header "Content-Type: application/json" --data '{"email": "erika@example.com", "password": "correct horse"}'
func (s *Service) signIn(c *gin.Context) {
	var credentials pub.Credentials
	if err := c.BindJSON(&credentials); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	token, session, err := s.provider.SignIn(c.Request.Context(), credentials.Email, credentials.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	case err != nil:
		s.logger.Error("sign in failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not sign in"})
	default:
		s.startSession(c, token, session)
	}
}

func (s *Service) startSession(c *gin.Context, token string, session auth.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", false, true)
	c.IndentedJSON(http.StatusOK, pub.SessionResponse{
		Token:     token,
		UserId:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	})
}

// signOut ends the caller's session on every device. Open contact lists of the user are
// closed.
//
// Example REST API call:
//
//	> curl http://localhost:8080/auth/signout --request "POST" --header "Authorization: Bearer $TOKEN"
func (s *Service) signOut(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	if err := s.provider.SignOut(auth.TokenFrom(c)); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": msgSignOutFailed})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": msgSignedOut})
}

// enterView returns the contact list of the caller's session. If the session ended in the
// meantime, the caller is redirected like in the session middleware.
func (s *Service) enterView(c *gin.Context) (*dashboard.View, bool) {
	v, ok := s.registry.Enter(c.Request.Context(), auth.SessionTokenFrom(c))
	if !ok {
		c.Redirect(http.StatusFound, auth.EntryPoint)
		c.Abort()
		return nil, false
	}
	return v, true
}

// findContacts responds with the caller's contact list as JSON, newest first.
//
// The URL parameter 'q' sets the search query: only contacts whose name or email contain
// it, ignoring case, are listed. The query is kept for later calls; 'q=' clears it.
//
// The URL parameter 'view' switches the layout between 'card' and 'table'.
//
// If the URL parameter 'refresh' is 'true', the contacts are fetched from the database
// again. Otherwise the list reflects the changes made through this session.
//
// REST API calls:
//
//	> curl "http://localhost:8080/contacts" --header "Authorization: Bearer $TOKEN"
//	> curl "http://localhost:8080/contacts?q=ana" --header "Authorization: Bearer $TOKEN"
//	> curl "http://localhost:8080/contacts?view=table&refresh=true" --header "Authorization: Bearer $TOKEN"
func (s *Service) findContacts(c *gin.Context) {
	v, ok := s.enterView(c)
	if !ok {
		return
	}
	if name, present := c.GetQuery("view"); present {
		if err := v.SetMode(view.Mode(name)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid view parameter"})
			return
		}
	}
	if query, present := c.GetQuery("q"); present {
		v.Search(query)
	}
	if c.Query("refresh") == "true" {
		v.Load(c.Request.Context())
	}
	c.IndentedJSON(http.StatusOK, contactList(v.State(), nil))
}

// createContact adds the contact specified in the request's JSON to the caller's list. It
// responds with the list as fetched after the insert, the new contact first.
//
// Validation errors are answered with 422 and one entry per broken rule in 'messages'.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"name": "Erika Mustermann", "email": "erika@example.com", "phone": "+49 0815 4711"}'
func (s *Service) createContact(c *gin.Context) {
	v, ok := s.enterView(c)
	if !ok {
		return
	}
	var form pub.ContactForm
	if err := c.BindJSON(&form); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	s.respond(c, v, v.Create(c.Request.Context(), form), http.StatusCreated)
}

// updateContactByID replaces name, email, phone and address of the contact whose ID
// matches the id parameter of the request URL. All fields are validated as on create. It
// responds with the list as fetched after the update.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/0b6f2a4e-1c2d-4e8f-9a3b-5c6d7e8f9a0b --request "PUT" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"name": "Erika Mustermann", "email": "erika@example.com", "phone": "+49 0815 4711", "address": "Heidestrasse 17, Koeln"}'
func (s *Service) updateContactByID(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	v, ok := s.enterView(c)
	if !ok {
		return
	}
	var form pub.ContactForm
	if err := c.BindJSON(&form); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	s.respond(c, v, v.Update(c.Request.Context(), id, form), http.StatusOK)
}

// deleteContactByID deletes the contact whose ID matches the id parameter of the request
// URL. The contact leaves the list only after the database confirmed the delete.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/0b6f2a4e-1c2d-4e8f-9a3b-5c6d7e8f9a0b --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (s *Service) deleteContactByID(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	v, ok := s.enterView(c)
	if !ok {
		return
	}
	s.respond(c, v, v.Delete(c.Request.Context(), id), http.StatusOK)
}

// setViewMode switches the caller's list between 'card' and 'table' layout.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/view/table --request "PUT" --header "Authorization: Bearer $TOKEN"
func (s *Service) setViewMode(c *gin.Context) {
	mode, err := view.ParseMode(c.Param("mode"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid view mode"})
		return
	}
	v, ok := s.enterView(c)
	if !ok {
		return
	}
	if err := v.SetMode(mode); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid view mode"})
		return
	}
	c.IndentedJSON(http.StatusOK, contactList(v.State(), nil))
}

// respond writes the outcome of a contact operation. Successful operations answer with
// the updated list and the outcome's notice; failed ones with the notice or the
// validation messages only.
func (s *Service) respond(c *gin.Context, v *dashboard.View, out contacts.Outcome, success int) {
	switch out.Failure {
	case contacts.FailureNone:
		c.IndentedJSON(success, contactList(v.State(), out.Notice))
	case contacts.FailureValidation:
		c.IndentedJSON(http.StatusUnprocessableEntity, pub.Message{Message: msgInvalidContact, Messages: out.Messages})
	case contacts.FailureUnauthenticated:
		c.IndentedJSON(http.StatusUnauthorized, pub.Message{Message: noticeText(out, "sign in required")})
	case contacts.FailureNotFound:
		c.IndentedJSON(http.StatusNotFound, pub.Message{Message: noticeText(out, "contact not found")})
	default:
		c.IndentedJSON(http.StatusInternalServerError, pub.Message{Message: noticeText(out, "internal error")})
	}
}

func noticeText(out contacts.Outcome, fallback string) string {
	if out.Notice == nil {
		return fallback
	}
	return out.Notice.Message
}

// contactList converts the state of a view into its JSON form. The notice of the current
// operation, if any, comes before the queued ones.
func contactList(state dashboard.State, notice *contacts.Notice) pub.ContactList {
	list := pub.ContactList{
		Mode:       string(state.Mode),
		Query:      state.Query,
		Total:      state.Total,
		Contacts:   make([]pub.Contact, 0, len(state.Contacts)),
		EmptyState: state.EmptyState,
	}
	for _, c := range state.Contacts {
		list.Contacts = append(list.Contacts, toWire(c))
	}
	if notice != nil {
		list.Notices = append(list.Notices, pub.Notice{Level: string(notice.Level), Message: notice.Message})
	}
	for _, n := range state.Notices {
		list.Notices = append(list.Notices, pub.Notice{Level: string(n.Level), Message: n.Message})
	}
	return list
}

func toWire(c model.Contact) pub.Contact {
	return pub.Contact{
		Id:        c.Id,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
