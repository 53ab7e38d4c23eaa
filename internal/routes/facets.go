package routes

import (
	"encoding/json"
	"net/http"

	"mediadiary-server/internal/facets"
	pkghttpx "mediadiary-server/pkg/httpx"
)

// FacetCounts handles GET /users/{uid}/facets/{family}
func FacetCounts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		family, err := facets.ParseFamily(r.PathValue("family"))
		if err != nil {
			pkghttpx.WriteError(w, r, pkghttpx.NotFound("unknown facet family", err))
			return
		}
		cacheKey := d.cacheKey(ctx, uid, "facets:"+string(family))
		if cached, ok := d.cached(ctx, "facets", cacheKey); ok {
			pkghttpx.WriteRawJSON(w, http.StatusOK, cached)
			return
		}
		counts, err := d.Engine.FacetCounts(ctx, uid, family)
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		b, err := json.Marshal(map[string]any{"family": family, "counts": counts})
		if err != nil {
			pkghttpx.WriteError(w, r, pkghttpx.Internal("failed to encode counts", err))
			return
		}
		if d.Cache != nil {
			_ = d.Cache.Set(ctx, cacheKey, string(b), cacheTTL)
		}
		pkghttpx.WriteRawJSON(w, http.StatusOK, string(b))
	}
}

// Audit handles GET /users/{uid}/audit
func Audit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		rep, err := d.Engine.Audit(ctx, uid)
		d.Metrics.RecordAudit(len(rep.Facets), len(rep.Refs), err)
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		pkghttpx.WriteJSON(w, http.StatusOK, rep)
	}
}
