package httpapi

import (
	"sync/atomic"

	"competitoriq-engine/internal/config"
	"competitoriq-engine/internal/digest"
	"competitoriq-engine/internal/events"
	"competitoriq-engine/internal/logger"
	"competitoriq-engine/internal/tracker"
)

type Deps struct {
	Tracker    *tracker.Tracker
	Aggregator *digest.Aggregator

	Hub *events.Hub
	Log logger.Logger

	// Atomic config snapshot shared with main
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
