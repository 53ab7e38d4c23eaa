package routes

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"mediadiary-server/internal/model"
	pkghttpx "mediadiary-server/pkg/httpx"
	"mediadiary-server/pkg/signer"
)

type pageResp struct {
	Items      []model.EntryDoc `json:"items"`
	Count      int              `json:"count"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateEntry handles POST /users/{uid}/diary
func CreateEntry(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		var req entryPayload
		if he := pkghttpx.DecodeJSON(w, r, &req); he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		doc, err := d.Engine.Create(ctx, uid, req.entry(), req.media())
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		d.mutated(ctx, uid)
		zerolog.Ctx(ctx).Info().Str("diary_id", doc.DiaryID).Msg("diary entry created")
		pkghttpx.WriteJSON(w, http.StatusCreated, doc)
	}
}

// ListEntries handles GET /users/{uid}/diary
func ListEntries(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		cursor, he := d.decodeCursor(signer.ScopeDiary, r.URL.Query().Get("cursor"))
		if he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		filters, he := parseFilters(r)
		if he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		cacheKey := d.cacheKey(ctx, uid, "diary:"+r.URL.RawQuery)
		if cached, ok := d.cached(ctx, "diary", cacheKey); ok {
			pkghttpx.WriteRawJSON(w, http.StatusOK, cached)
			return
		}
		page, err := d.Engine.List(ctx, uid, cursor, filters)
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		d.writePage(w, r, cacheKey, signer.ScopeDiary, page.Entries, page.Next)
	}
}

// GetEntry handles GET /users/{uid}/diary/{id}
func GetEntry(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		doc, err := d.Engine.Get(ctx, uid, r.PathValue("id"))
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, true))
			return
		}
		pkghttpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// EditEntry handles PUT /users/{uid}/diary/{id}
func EditEntry(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		var req entryPayload
		if he := pkghttpx.DecodeJSON(w, r, &req); he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		doc, err := d.Engine.Edit(ctx, uid, r.PathValue("id"), req.entry())
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, true))
			return
		}
		d.mutated(ctx, uid)
		pkghttpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// DeleteEntry handles DELETE /users/{uid}/diary/{id}
func DeleteEntry(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		id := r.PathValue("id")
		if err := d.Engine.Delete(ctx, uid, id); err != nil {
			pkghttpx.WriteError(w, r, engineError(err, true))
			return
		}
		d.mutated(ctx, uid)
		zerolog.Ctx(ctx).Info().Str("diary_id", id).Msg("diary entry deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

// writePage renders a listing page, caches it and writes it.
func (d Deps) writePage(w http.ResponseWriter, r *http.Request, cacheKey string, scope signer.Scope, entries []model.EntryDoc, next *model.Cursor) {
	if entries == nil {
		entries = []model.EntryDoc{}
	}
	resp := pageResp{Items: entries, Count: len(entries), NextCursor: d.encodeCursor(scope, next)}
	b, err := json.Marshal(resp)
	if err != nil {
		pkghttpx.WriteError(w, r, pkghttpx.Internal("failed to encode page", err))
		return
	}
	if d.Cache != nil {
		_ = d.Cache.Set(r.Context(), cacheKey, string(b), cacheTTL)
	}
	pkghttpx.WriteRawJSON(w, http.StatusOK, string(b))
}
