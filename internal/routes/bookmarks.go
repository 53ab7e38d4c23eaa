package routes

import (
	"net/http"

	pkghttpx "mediadiary-server/pkg/httpx"
	"mediadiary-server/pkg/signer"
)

// AddBookmark handles POST /users/{uid}/bookmarks
func AddBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		var req entryPayload
		if he := pkghttpx.DecodeJSON(w, r, &req); he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		doc, err := d.Engine.AddBookmark(ctx, uid, req.entry(), req.media())
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		d.mutated(ctx, uid)
		pkghttpx.WriteJSON(w, http.StatusCreated, doc)
	}
}

// ListBookmarks handles GET /users/{uid}/bookmarks
func ListBookmarks(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ctx := userID(r)
		token := r.URL.Query().Get("cursor")
		cursor, he := d.decodeCursor(signer.ScopeBookmarks, token)
		if he != nil {
			pkghttpx.WriteError(w, r, he)
			return
		}
		cacheKey := d.cacheKey(ctx, uid, "bookmarks:"+token)
		if cached, ok := d.cached(ctx, "bookmarks", cacheKey); ok {
			pkghttpx.WriteRawJSON(w, http.StatusOK, cached)
			return
		}
		page, err := d.Engine.ListBookmarks(ctx, uid, cursor)
		if err != nil {
			pkghttpx.WriteError(w, r, engineError(err, false))
			return
		}
		d.writePage(w, r, cacheKey, signer.ScopeBookmarks, page.Entries, page.Next)
	}
}
