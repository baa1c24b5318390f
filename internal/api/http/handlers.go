package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/service"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into v. An empty body leaves v at its zero value.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return fmt.Errorf("%w: malformed JSON body", domain.ErrValidation)
}

// caller returns the identity the auth middleware stored. Handlers behind a non-public
// route always have one.
func caller(r *http.Request) string {
	id, _ := IdentityFromContext(r.Context())
	return id.UserID
}

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string      `json:"token"`
	Role   domain.Role `json:"role"`
	UserID string      `json:"userId"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: user.Role, UserID: user.ID})
}

type AssetHandler struct {
	svc service.AssetService
}

func NewAssetHandler(svc service.AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

type createAssetRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	asset, err := h.svc.CreateAsset(r.Context(), req.Name, req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.svc.ListAssets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *AssetHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	assets, err := h.svc.ListMyAssets(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

type RequestHandler struct {
	svc service.RequestService
}

func NewRequestHandler(svc service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type createRequestRequest struct {
	AssetID string `json:"assetId"`
}

type decideRequest struct {
	Status domain.RequestStatus `json:"status"`
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.CreateRequest(r.Context(), req.AssetID, caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListMyRequests(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *RequestHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListAllRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *RequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	decided, err := h.svc.DecideRequest(r.Context(), mux.Vars(r)["requestId"], req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}

func (h *RequestHandler) Return(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ReturnAsset(r.Context(), mux.Vars(r)["requestId"], caller(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Asset returned successfully")
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.FromContext(r.Context()).Error("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
