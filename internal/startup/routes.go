package startup

import (
	"sort"
	"strings"

	"media-relay/internal/logging"

	"github.com/gorilla/mux"
)

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes lists every method and path template registered on router.
// Routes without a method matcher, such as subrouter prefixes, report "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes logs the API surface: every route at debug level, then the
// auth and request logging settings.
func LogHTTPRoutes(router *mux.Router, authEnabled, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("  error walking routes: %v", err)
		}
		sort.SliceStable(routes, func(i, j int) bool {
			gi, gj := getRouteGroup(routes[i].Path), getRouteGroup(routes[j].Path)
			if gi != gj {
				return gi < gj
			}
			return routes[i].Path < routes[j].Path
		})

		logging.Debug("  Registered routes (%d total):", len(routes))
		current := "\x00"
		for _, route := range routes {
			if group := getRouteGroup(route.Path); group != current {
				current = group
				if group == "" {
					group = "root"
				}
				logging.Debug("  [%s]", group)
			}
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	if authEnabled {
		logging.Info("  [OK] Bearer token required on /api routes")
	} else {
		logging.Warn("  API authentication disabled (set API_TOKEN_HASH to enable)")
	}
	if logHealthChecks {
		logging.Info("  Request logging: ON (including health checks)")
	} else {
		logging.Info("  Request logging: ON (health checks skipped; set LOG_HEALTH_CHECKS=true to log them)")
	}
}

// getRouteGroup names the group a path is listed under: its first segment,
// or the first two for /api routes.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		resource, _, _ := strings.Cut(rest, "/")
		return "api/" + resource
	}
	return first
}
