package skyrush_api

import (
	"net/http"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/models"
)

func (a *SkyRushAPI) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	sess, err := a.deps.Accounts.Register(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	a.writeJSON(w, r, http.StatusCreated, sess.Profile)
}

func (a *SkyRushAPI) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	sess, err := a.deps.Accounts.Login(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	a.writeJSON(w, r, http.StatusOK, sess.Profile)
}

func (a *SkyRushAPI) logout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w)
	a.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (a *SkyRushAPI) profile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		a.writeError(w, r, apperr.Unauthorized("Not authorized, no token"))
		return
	}
	p, err := a.deps.Accounts.Profile(r.Context(), claims.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, p)
}
