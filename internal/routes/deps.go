package routes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/metrics"
	"mediadiary-server/pkg/cache"
	"mediadiary-server/pkg/signer"
)

// Deps holds the dependencies required by the route handlers.
type Deps struct {
	Name      string
	StartedAt time.Time

	Engine  *diary.Engine
	Cache   cache.Cache
	Signer  signer.Codec
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// OnMutation is called with the uid after every committed transition.
	OnMutation func(uid string)
}
