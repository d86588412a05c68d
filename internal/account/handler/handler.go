package handler

import (
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/account/dto"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/gorilla/mux"
)

var signupSchema = httpx.MustCompileSchema("signup", `{
	"type": "object",
	"required": ["email", "password", "name", "clinic_name"],
	"properties": {
		"email": {"type": "string", "minLength": 3, "maxLength": 254},
		"password": {"type": "string", "minLength": 8, "maxLength": 72},
		"name": {"type": "string", "minLength": 2, "maxLength": 120},
		"clinic_name": {"type": "string", "minLength": 2, "maxLength": 120}
	}
}`)

var loginSchema = httpx.MustCompileSchema("login", `{
	"type": "object",
	"required": ["email", "password"],
	"properties": {
		"email": {"type": "string", "minLength": 1},
		"password": {"type": "string", "minLength": 1}
	}
}`)

var createUserSchema = httpx.MustCompileSchema("create-user", `{
	"type": "object",
	"required": ["email", "password", "name", "role"],
	"properties": {
		"email": {"type": "string", "minLength": 3, "maxLength": 254},
		"password": {"type": "string", "minLength": 8, "maxLength": 72},
		"name": {"type": "string", "minLength": 2, "maxLength": 120},
		"role": {"enum": ["ADMIN", "STAFF"]}
	}
}`)

type AccountHandler struct {
	uc      account.UseCase
	limiter *httpx.RateLimiter
}

// NewAccountHandler wires the auth and user routes. limiter, when non-nil,
// throttles signup and login per client IP.
func NewAccountHandler(uc account.UseCase, limiter *httpx.RateLimiter) *AccountHandler {
	return &AccountHandler{uc: uc, limiter: limiter}
}

func (h *AccountHandler) Register(r *mux.Router) {
	r.Handle("/auth/signup", h.throttle(h.Signup)).Methods(http.MethodPost)
	r.Handle("/auth/login", h.throttle(h.Login)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	r.HandleFunc("/account", h.GetAccount).Methods(http.MethodGet)
	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
}

func (h *AccountHandler) throttle(fn http.HandlerFunc) http.Handler {
	if h.limiter == nil {
		return fn
	}
	return h.limiter.Middleware(fn)
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	ClinicName string `json:"clinic_name"`
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.Decode(r, signupSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	session, err := h.uc.Signup(r.Context(), &dto.SignupInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		ClinicName: req.ClinicName,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, loginSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	session, err := h.uc.Login(r.Context(), &dto.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, session)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	if err := h.uc.Logout(r.Context(), user.AccountID, user.UserID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	info, err := h.uc.GetAccount(r.Context(), user.AccountID, user.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())

	var req createUserRequest
	if err := httpx.Decode(r, createUserSchema, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	created, err := h.uc.CreateUser(r.Context(), &dto.CreateUserInput{
		AccountID: user.AccountID,
		ActorID:   user.UserID,
		ActorRole: user.Role,
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      req.Role,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": created})
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	users, err := h.uc.ListUsers(r.Context(), user.AccountID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}
