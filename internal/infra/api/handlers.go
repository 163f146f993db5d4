package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

// ---- checkout ----

type checkoutRequest struct {
	UserID     string `json:"user_id"`
	PlanID     string `json:"plan_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

func checkoutHandler(uc usecase.CheckoutUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		if req.UserID == "" || req.PlanID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "user_id and plan_id are required"})
			return
		}
		res, err := uc.Initiate(r.Context(), req.UserID, req.PlanID, req.CouponCode)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ---- admin auth ----

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		if !auth.Login(req.Username, req.Password) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
			return
		}
		token, err := auth.Mint()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "token mint failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": token})
	}
}

// ---- admin plans ----

type planPayload struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Interval    string  `json:"interval"`
	Description string  `json:"description,omitempty"`
	Active      bool    `json:"active"`
}

type planView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Interval    string  `json:"interval"`
	Description string  `json:"description,omitempty"`
	Active      bool    `json:"active"`
}

func toPlanView(p *model.Plan) planView {
	return planView{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Interval:    string(p.BillingInterval),
		Description: p.Description,
		Active:      p.Active,
	}
}

func plansListHandler(uc *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := uc.ListActive(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]planView, 0, len(plans))
		for _, p := range plans {
			out = append(out, toPlanView(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func plansCreateHandler(uc *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		plan, err := uc.Create(r.Context(), req.Name, req.Price, model.BillingInterval(req.Interval), req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPlanView(plan))
	}
}

func plansUpdateHandler(uc *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req planPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		plan, err := uc.Update(r.Context(), id, req.Name, req.Price, model.BillingInterval(req.Interval), req.Description, req.Active)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanView(plan))
	}
}

func plansDeleteHandler(uc *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---- admin stats ----

func statsHandler(uc usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, month, year, err := uc.Revenue(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		byPlan, err := uc.ActiveByPlan(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"revenue": map[string]float64{
				"week":  week,
				"month": month,
				"year":  year,
			},
			"active_by_plan": byPlan,
		})
	}
}

// writeError maps domain sentinels to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid argument"})
	case errors.Is(err, domain.ErrCouponInactive),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponExhausted):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
	}
}
