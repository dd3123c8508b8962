package httpapi

import (
	"net/http"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/metrics"
	"ai-meal-coach/internal/shared"

	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	Session    *mealplan.Session `json:"session"`
	Usage      shared.TokenUsage `json:"usage"`
	Provider   llm.Provider      `json:"provider"`
	DurationMS int64             `json:"durationMs"`
	Attempts   int               `json:"attempts"`
}

func toSessionResponse(res *app.SessionResult) sessionResponse {
	return sessionResponse{
		Session:    res.Session,
		Usage:      res.Usage,
		Provider:   res.Provider,
		DurationMS: res.Duration.Milliseconds(),
		Attempts:   res.Attempts,
	}
}

type confirmResponse struct {
	MealPlan        *mealplan.StoredMealPlan `json:"mealPlan"`
	Session         *mealplan.Session        `json:"session"`
	ReplacedPlanIDs []string                 `json:"replacedPlanIds"`
}

type constraintRequest struct {
	Constraint string `json:"constraint"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req app.GenerateRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.GenerateMealPlan(r.Context(), userID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, toSessionResponse(res))
}

func (s *Server) regenerateMeal(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req app.RegenerateMealRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.RegenerateMeal(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, toSessionResponse(res))
}

func (s *Server) regeneratePlan(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req app.RegeneratePlanRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.RegeneratePlan(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, toSessionResponse(res))
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req app.ConfirmRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.ConfirmSession(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	replaced := res.ReplacedPlanIDs
	if replaced == nil {
		replaced = []string{}
	}
	ok(w, http.StatusOK, confirmResponse{MealPlan: res.MealPlan, Session: res.Session, ReplacedPlanIDs: replaced})
}

func (s *Server) addConstraint(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req constraintRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.AddTemporaryConstraint(r.Context(), userID, chi.URLParam(r, "id"), req.Constraint)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, session)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.GetSession(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, session)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteSession(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) listMealPlans(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plans, err := s.svc.ListMealPlans(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, nonNil(plans))
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	plans, err := s.svc.Calendar(r.Context(), userID, q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, nonNil(plans))
}

func (s *Server) getMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := s.svc.GetMealPlan(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, plan)
}

func (s *Server) deleteMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteMealPlan(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) shoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.svc.ShoppingList(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req app.RegisterRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.svc.RegisterUser(r.Context(), userID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.svc.GetUser(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var profile mealplan.Profile
	s.updateUser(w, r, &profile, func(userID string) (*mealplan.User, error) {
		return s.svc.UpdateProfile(r.Context(), userID, profile)
	})
}

func (s *Server) updateRestrictions(w http.ResponseWriter, r *http.Request) {
	var restrictions mealplan.DietaryRestrictions
	s.updateUser(w, r, &restrictions, func(userID string) (*mealplan.User, error) {
		return s.svc.UpdateDietaryRestrictions(r.Context(), userID, restrictions)
	})
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs mealplan.LearnedPreferences
	s.updateUser(w, r, &prefs, func(userID string) (*mealplan.User, error) {
		return s.svc.UpdateLearnedPreferences(r.Context(), userID, prefs)
	})
}

// updateUser decodes the body into dst before calling apply.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, dst any, apply func(userID string) (*mealplan.User, error)) {
	userID, err := requireUserID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := decode(r, dst); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := apply(userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, user)
}

type healthResponse struct {
	Status    string            `json:"status"`
	Database  string            `json:"database"`
	System    metrics.SysHealth `json:"system"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "ok",
		System:    metrics.GetSysHealth(s.dataDir),
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status, resp.Database = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, envelope{Success: status == http.StatusOK, Data: resp})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
