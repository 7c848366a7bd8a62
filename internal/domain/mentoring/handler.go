package mentoring

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mindline/mindline/internal/platform/auth"
	"github.com/mindline/mindline/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/students/anonymous", h.CreateAnonymousStudent)
	api.POST("/students", h.CreateStudent)
	api.POST("/mentors", h.CreateMentor)
	api.PUT("/mentors/availability", h.SetAvailability)

	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:id", h.GetSession)
	api.POST("/sessions/:id/complete", h.CompleteSession)
	api.POST("/sessions/:id/terminate", h.TerminateSession)

	api.GET("/sessions/:id/messages", h.ListMessages)
	api.POST("/sessions/:id/messages", h.SendMessage)

	api.GET("/unread-count", h.UnreadCount)
	api.GET("/escalations", h.ListEscalations)
	api.GET("/sessions/:id/escalations", h.SessionEscalations)
}

// principalFromRequest resolves the caller identity: the authenticated user
// id when a token was presented, otherwise the anonymous_id query parameter.
func principalFromRequest(c echo.Context) (Principal, error) {
	if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
		return Principal{UserID: userID}, nil
	}
	if anon := c.QueryParam("anonymous_id"); anon != "" {
		id, err := uuid.Parse(anon)
		if err != nil {
			return Principal{}, echo.NewHTTPError(http.StatusBadRequest, "invalid anonymous_id")
		}
		return Principal{AnonymousStudentID: id}, nil
	}
	return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
}

// httpError maps domain errors onto HTTP responses.
func httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"field": ve.Field, "message": ve.Reason,
		})
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrProfileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNoMentorAvailable), errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// -- Profile Handlers --

func (h *Handler) CreateAnonymousStudent(c echo.Context) error {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile, err := h.svc.CreateAnonymousStudent(c.Request().Context(), req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) CreateStudent(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile, err := h.svc.CreateStudent(c.Request().Context(), userID, req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) CreateMentor(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req struct {
		DisplayName string     `json:"display_name"`
		Specialty   *string    `json:"specialty"`
		CategoryID  *uuid.UUID `json:"category_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile, err := h.svc.CreateMentor(c.Request().Context(), userID, req.DisplayName, req.Specialty, req.CategoryID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) SetAvailability(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetAvailability(c.Request().Context(), userID, req.Available); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Session Handlers --

func (h *Handler) CreateSession(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	var req CreateSessionInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.CreateSession(c.Request().Context(), p, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSessions(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSession(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) CompleteSession(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Rating   *int    `json:"rating"`
		Feedback *string `json:"feedback"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CompleteSession(c.Request().Context(), id, p, req.Rating, req.Feedback); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) TerminateSession(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.TerminateSession(c.Request().Context(), id, p); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Message Handlers --

func (h *Handler) SendMessage(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req SendMessageInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.svc.SendMessage(c.Request().Context(), id, p, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ListMessages(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	msgs, total, err := h.svc.SessionMessages(c.Request().Context(), id, p, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(msgs, total, pg.Limit, pg.Offset))
}

// -- Aggregates --

func (h *Handler) UnreadCount(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.UnreadCount(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListEscalations(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.ListEscalations(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) SessionEscalations(c echo.Context) error {
	p, err := principalFromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.SessionEscalations(c.Request().Context(), id, p, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}
