package skyrush_api

import (
	"net/http"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/go-chi/chi/v5"
)

func (a *SkyRushAPI) createPackage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		a.writeError(w, r, apperr.Unauthorized("Not authorized, no token"))
		return
	}

	imagePath, err := a.saveUpload(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	in := models.PackageCreateInput{
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		ExternalTracking: r.FormValue("externalTracking"),
	}
	p, err := a.deps.Packages.Create(r.Context(), claims.UserID, in, imagePath)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusCreated, p)
}

func (a *SkyRushAPI) listMyPackages(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		a.writeError(w, r, apperr.Unauthorized("Not authorized, no token"))
		return
	}
	out, err := a.deps.Packages.ListOwned(r.Context(), claims.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.Package{}
	}
	a.writeJSON(w, r, http.StatusOK, out)
}

func (a *SkyRushAPI) trackPackage(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Packages.TrackPublic(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	p.UserID = ""
	a.writeJSON(w, r, http.StatusOK, p)
}

func (a *SkyRushAPI) updatePackageStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		a.writeError(w, r, apperr.Unauthorized("Not authorized, no token"))
		return
	}
	var in models.StatusUpdateInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.deps.Packages.UpdateStatus(r.Context(), claims.Role, chi.URLParam(r, "id"), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, p)
}
