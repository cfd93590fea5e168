package httpapi

import "net/http"

// NewMux wires the dashboard-facing routes. main() wraps the result in the
// middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	// Competitors
	comp := CompetitorsHandler{T: d.Tracker}
	mux.HandleFunc("/competitors", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  comp.List,
		http.MethodPost: comp.Create,
	}))
	mux.HandleFunc("/competitors/scan", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: comp.Scan,
	}))
	mux.HandleFunc("/competitors/", methodMux(map[string]http.HandlerFunc{
		http.MethodPatch:  comp.UpdateByPath,  // /competitors/{id}
		http.MethodDelete: comp.DeleteByPath,
	}))

	// Summaries
	sum := SummariesHandler{A: d.Aggregator, Hub: d.Hub}
	mux.HandleFunc("/summaries", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sum.View,
	}))
	mux.HandleFunc("/summaries/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sum.Refresh,
	}))

	// Preferences
	pref := PreferencesHandler{T: d.Tracker}
	mux.HandleFunc("/preferences", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: pref.Get,
		http.MethodPut: pref.Put,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (read cfgVal, never a snapshot)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetToken,
		http.MethodDelete: sh.DeleteToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
