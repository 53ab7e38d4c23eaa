package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/model"
	"mediadiary-server/internal/repos"
	pkghttpx "mediadiary-server/pkg/httpx"
	pkgrequestctx "mediadiary-server/pkg/requestctx"
	"mediadiary-server/pkg/signer"
)

const (
	cacheTTL      = 2 * time.Minute
	generationTTL = 24 * time.Hour
)

// engineError maps an engine error onto the API error envelope. entryMissing reports
// whether a not-found means the addressed entry itself is absent.
func engineError(err error, entryMissing bool) *pkghttpx.HTTPError {
	var (
		verr *diary.ValidationError
		cerr *diary.ConsistencyError
		serr *diary.StoreError
	)
	switch {
	case errors.As(err, &verr):
		he := pkghttpx.BadRequest("invalid "+verr.Field, err)
		he.Code = "validation"
		he.Details = map[string]any{"field": verr.Field, "reason": verr.Reason}
		return he
	case errors.As(err, &cerr):
		var nf *repos.NotFoundError
		if entryMissing && errors.As(err, &nf) && nf.Kind == repos.KindEntry {
			return pkghttpx.NotFound("entry not found", err)
		}
		return pkghttpx.Conflict("state changed or inconsistent", err)
	case errors.As(err, &serr):
		return pkghttpx.Unavailable("store unavailable", err)
	default:
		return pkghttpx.Internal("unexpected error", err)
	}
}

// userID reads the {uid} path value and records it on the request logger.
func userID(r *http.Request) (string, context.Context) {
	uid := r.PathValue("uid")
	ctx := pkgrequestctx.WithUserID(r.Context(), uid)
	l := zerolog.Ctx(ctx).With().Str("uid", uid).Logger()
	return uid, l.WithContext(ctx)
}

func (d Deps) decodeCursor(scope signer.Scope, token string) (*model.Cursor, *pkghttpx.HTTPError) {
	if token == "" {
		return nil, nil
	}
	if d.Signer == nil {
		return nil, pkghttpx.Internal("cursor signer not configured", nil)
	}
	v, id, err := d.Signer.DecodeCursor(scope, token)
	if err != nil {
		return nil, pkghttpx.BadRequest("invalid cursor", err)
	}
	return &model.Cursor{OrderValue: v, DiaryID: id}, nil
}

func (d Deps) encodeCursor(scope signer.Scope, c *model.Cursor) string {
	if c == nil || d.Signer == nil {
		return ""
	}
	return d.Signer.EncodeCursor(scope, c.OrderValue, c.DiaryID)
}

// userCachePrefix scopes every cached read of one user so a mutation can drop them together.
func userCachePrefix(uid string) string { return "diary:" + uid + ":" }

// generationKey holds the user's cache generation. It lives outside userCachePrefix so
// DeletePrefix never drops it.
func generationKey(uid string) string { return "diarygen:" + uid }

// cacheKey builds a read cache key under the user's current generation. A page rendered
// from state older than the last mutation is stored under a generation no reader asks for.
func (d Deps) cacheKey(ctx context.Context, uid, suffix string) string {
	var gen string
	if d.Cache != nil {
		gen, _ = d.Cache.Get(ctx, generationKey(uid))
	}
	return userCachePrefix(uid) + gen + ":" + suffix
}

// mutated moves the user to a new cache generation, drops the older pages and notifies
// the audit queue.
func (d Deps) mutated(ctx context.Context, uid string) {
	if d.Cache != nil {
		if err := d.Cache.Set(ctx, generationKey(uid), xid.New().String(), generationTTL); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("cache generation bump failed")
		}
		if err := d.Cache.DeletePrefix(ctx, userCachePrefix(uid)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
		}
	}
	if d.OnMutation != nil {
		d.OnMutation(uid)
	}
}

func (d Deps) cached(ctx context.Context, route, key string) (string, bool) {
	if d.Cache == nil {
		return "", false
	}
	body, ok := d.Cache.Get(ctx, key)
	if ok {
		d.Metrics.RecordCacheHit(route)
	} else {
		d.Metrics.RecordCacheMiss(route)
	}
	return body, ok
}

func optInt(q string) (*int, error) {
	if q == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(q)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseFilters reads the diary listing filters from the query string.
func parseFilters(r *http.Request) (model.DiaryFilters, *pkghttpx.HTTPError) {
	q := r.URL.Query()
	var f model.DiaryFilters
	if types := q.Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.MediaTypes = append(f.MediaTypes, model.MediaType(t))
			}
		}
	}
	var err error
	if f.Rating, err = optInt(q.Get("rating")); err != nil {
		return f, pkghttpx.BadRequest("invalid rating", err)
	}
	if f.ReleasedDecade, err = optInt(q.Get("decade")); err != nil {
		return f, pkghttpx.BadRequest("invalid decade", err)
	}
	if f.DiaryYear, err = optInt(q.Get("year")); err != nil {
		return f, pkghttpx.BadRequest("invalid year", err)
	}
	if s := q.Get("loggedBefore"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, pkghttpx.BadRequest("invalid loggedBefore", err)
		}
		f.LoggedBefore = &v
	}
	if g := q.Get("genre"); g != "" {
		f.Genre = &g
	}
	return f, nil
}
