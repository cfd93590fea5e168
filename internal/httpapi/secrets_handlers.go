package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"competitoriq-engine/internal/config"
	"competitoriq-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setTokenReq struct {
	Token string `json:"token"`
}

// SetToken stores the identity provider's session token in the OS keychain.
// The UI pushes a fresh one here after sign-in.
func (h SecretsHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetToken(secrets.TokenAccount(cfg.Caller.UserID), req.Token); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_failed", "failed to store token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.DeleteToken(secrets.TokenAccount(cfg.Caller.UserID)); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_failed", "failed to delete token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
