package api

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/relief-fund/internal/ai"
	"github.com/david/relief-fund/internal/auth"
	"github.com/david/relief-fund/internal/db"
	"github.com/david/relief-fund/internal/intake"
	"github.com/david/relief-fund/internal/models"
	"github.com/david/relief-fund/internal/policy"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	Programs    *policy.ProgramRegistry
	Refiner     *policy.Refiner

	// One collection session per applicant/fund pair, rebuilt from storage
	// on first touch.
	sessionMu sync.Mutex
	sessions  map[sessionKey]*intake.CollectionSession
}

type sessionKey struct {
	applicantID uuid.UUID
	fundID      string
}

func NewServer(pool *pgxpool.Pool, programs *policy.ProgramRegistry) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(pool)

	var refiner *policy.Refiner
	if os.Getenv("ADJUDICATOR_DISABLED") == "" {
		ollamaHost := os.Getenv("OLLAMA_HOST")
		model := os.Getenv("ADJUDICATOR_MODEL")
		refiner = policy.NewRefiner(ai.NewOllamaClient(ollamaHost, model))
	}

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		Programs:    programs,
		Refiner:     refiner,
		sessions:    make(map[sessionKey]*intake.CollectionSession),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	api.GET("/programs", s.handleListPrograms)

	app := api.Group("/funds/:fund/application")
	app.Use(auth.Middleware)
	app.PATCH("/profile", s.handleUpdateProfile)
	app.PATCH("/event", s.handleUpdateEvent)
	app.PUT("/expenses", s.handleSetExpenses)
	app.PATCH("/agreements", s.handleUpdateAgreements)
	app.DELETE("", s.handleResetDraft)
	app.GET("/missing-fields", s.handleMissingFields)
	app.GET("/ready", s.handleReady)
	app.POST("/evaluate", s.handleEvaluate)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrApplicantExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListPrograms(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Programs.Programs)
}

// session loads (or lazily creates) the collection session for the caller's
// applicant/fund pair, restoring any persisted draft.
func (s *Server) session(c echo.Context) (*intake.CollectionSession, sessionKey, error) {
	applicantID, err := auth.GetApplicantIDFromContext(c)
	if err != nil {
		return nil, sessionKey{}, echo.NewHTTPError(http.StatusUnauthorized, "Missing applicant identity")
	}
	fundID := c.Param("fund")
	if _, err := s.Programs.Get(fundID); err != nil {
		return nil, sessionKey{}, echo.NewHTTPError(http.StatusNotFound, "Unknown fund")
	}

	key := sessionKey{applicantID: applicantID, fundID: fundID}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session, key, nil
	}

	ctx := c.Request().Context()
	profile, err := s.Store.GetProfile(ctx, applicantID)
	if err != nil {
		return nil, sessionKey{}, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load profile")
	}

	session := intake.NewSession(profile)
	if draft, err := s.Store.LoadDraft(ctx, applicantID, fundID); err == nil {
		session.Restore(draft)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, sessionKey{}, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load draft")
	}

	s.sessions[key] = session
	return session, key, nil
}

func (s *Server) persistDraft(c echo.Context, key sessionKey, session *intake.CollectionSession) {
	if err := s.Store.SaveDraft(c.Request().Context(), key.applicantID, key.fundID, session.Snapshot()); err != nil {
		log.Printf("Failed to persist draft for %s/%s: %v", key.applicantID, key.fundID, err)
	}
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}

	var patch models.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := session.UpdateProfile(patch); err != nil {
		return intakeError(c, err)
	}

	s.persistDraft(c, key, session)
	return c.JSON(http.StatusOK, session.MissingFields())
}

func (s *Server) handleUpdateEvent(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}

	var patch models.EventPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := session.UpdateEventDraft(patch); err != nil {
		return intakeError(c, err)
	}

	s.persistDraft(c, key, session)
	return c.JSON(http.StatusOK, session.MissingFields())
}

func (s *Server) handleSetExpenses(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}

	var items []models.Expense
	if err := c.Bind(&items); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := session.SetExpenses(items); err != nil {
		return intakeError(c, err)
	}

	s.persistDraft(c, key, session)
	return c.JSON(http.StatusOK, session.MissingFields())
}

func (s *Server) handleUpdateAgreements(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}

	var patch models.AgreementPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := session.UpdateAgreements(patch); err != nil {
		return intakeError(c, err)
	}

	s.persistDraft(c, key, session)
	return c.JSON(http.StatusOK, session.MissingFields())
}

func (s *Server) handleResetDraft(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}
	if err := session.ResetDraft(); err != nil {
		return intakeError(c, err)
	}
	if err := s.Store.DeleteDraft(c.Request().Context(), key.applicantID, key.fundID); err != nil {
		log.Printf("Failed to delete stored draft for %s/%s: %v", key.applicantID, key.fundID, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMissingFields(c echo.Context) error {
	session, _, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.MissingFields())
}

func (s *Server) handleReady(c echo.Context) error {
	session, _, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ready": session.IsReadyForDecision()})
}

func (s *Server) handleEvaluate(c echo.Context) error {
	session, key, err := s.session(c)
	if err != nil {
		return err
	}

	program, err := s.Programs.Get(key.fundID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown fund")
	}

	ctx := c.Request().Context()
	balance, err := s.Store.GetBalance(ctx, key.applicantID, key.fundID,
		program.TwelveMonthCap, program.LifetimeCap, program.SingleRequestMax)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	decision, err := session.Decide(ctx, balance, program.Policy(), s.Refiner, time.Now())
	if err != nil {
		return intakeError(c, err)
	}

	if err := s.Store.InsertDecision(ctx, key.applicantID, key.fundID, decision); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if decision.Outcome == models.DecisionApproved {
		if err := s.Store.ApplyAward(ctx, key.applicantID, key.fundID, decision.RecommendedAward); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, decision)
}

// intakeError maps intake failures onto HTTP statuses. Every one of them
// leaves the draft untouched and inspectable.
func intakeError(c echo.Context, err error) error {
	var invalid *intake.InvalidFieldValueError
	var incomplete *intake.IncompleteDraftError
	switch {
	case errors.Is(err, intake.ErrTurnInFlight):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": invalid.Error()})
	case errors.As(err, &incomplete):
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":   incomplete.Error(),
			"section": incomplete.Active,
			"items":   incomplete.Missing,
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
