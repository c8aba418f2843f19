package skyrush_api

import (
	"net/http"

	"github.com/BearBump/SkyRush/internal/models"
)

func (a *SkyRushAPI) getCustomer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := a.deps.Customers.FindCustomer(r.Context(), q.Get("email"), q.Get("phone"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, c)
}

func (a *SkyRushAPI) getRates(w http.ResponseWriter, r *http.Request) {
	var in models.RateRequest
	if err := a.decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.deps.Rates.GetRates(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, out)
}
