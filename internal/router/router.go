package router

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/password-policy/pkg/errors"
)

// RouteNameKey is the gin context key holding the matched route's name.
const RouteNameKey = "route_name"

// Route is a named route.
type Route struct {
	Name   string
	Method string
	Path   string
}

type prioritized struct {
	priority int
	seq      int
	handler  gin.HandlerFunc
}

// Router is a gin engine with a named-route table. It implements policy.URLGenerator.
//
// Global middleware registered with Use runs in descending priority order, ahead of the
// route's own handlers. Use must be called before Handle.
type Router struct {
	engine     *gin.Engine
	routes     map[string]Route
	middleware []prioritized
	metrics    *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	MetricsPrefix string
	// Registerer receives the request metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

func New(cfg Config) *Router {
	engine := gin.New()

	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "http"
	}
	r := &Router{
		engine:  engine,
		routes:  make(map[string]Route),
		metrics: initRouterMetrics(cfg.MetricsPrefix, cfg.Registerer),
	}
	engine.Use(r.metricsMiddleware())
	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Use registers global middleware. Higher priorities run first; equal priorities keep
// registration order.
func (r *Router) Use(priority int, handlers ...gin.HandlerFunc) {
	for _, h := range handlers {
		r.middleware = append(r.middleware, prioritized{priority: priority, seq: len(r.middleware), handler: h})
	}
	sort.SliceStable(r.middleware, func(i, j int) bool {
		if r.middleware[i].priority != r.middleware[j].priority {
			return r.middleware[i].priority > r.middleware[j].priority
		}
		return r.middleware[i].seq < r.middleware[j].seq
	})
}

// Handle registers a named route. Names must be unique.
func (r *Router) Handle(name, method, path string, handlers ...gin.HandlerFunc) {
	if _, exists := r.routes[name]; exists {
		panic(fmt.Sprintf("router: duplicate route name %q", name))
	}
	r.routes[name] = Route{Name: name, Method: method, Path: path}

	chain := make([]gin.HandlerFunc, 0, len(r.middleware)+len(handlers)+1)
	chain = append(chain, func(c *gin.Context) {
		c.Set(RouteNameKey, name)
		c.Next()
	})
	for _, m := range r.middleware {
		chain = append(chain, m.handler)
	}
	chain = append(chain, handlers...)
	r.engine.Handle(method, path, chain...)
}

// Routes returns the route table sorted by name.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// URL builds the path of a named route. Params fill ":name" and "*name" segments; the
// rest become the query string.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	rt, ok := r.routes[name]
	if !ok {
		return "", errors.RouteNotFound(name)
	}

	used := make(map[string]struct{})
	segments := strings.Split(rt.Path, "/")
	for i, seg := range segments {
		if len(seg) < 2 || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		key := seg[1:]
		v, ok := params[key]
		if !ok {
			return "", errors.BadRequest(fmt.Sprintf("route %q requires parameter %q", name, key), nil)
		}
		used[key] = struct{}{}
		if seg[0] == '*' {
			segments[i] = strings.TrimPrefix(v, "/")
		} else {
			segments[i] = url.PathEscape(v)
		}
	}

	path := strings.Join(segments, "/")
	query := url.Values{}
	for k, v := range params {
		if _, ok := used[k]; !ok {
			query.Set(k, v)
		}
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// RouteName returns the name of the route handling c, or "".
func RouteName(c *gin.Context) string {
	return c.GetString(RouteNameKey)
}

func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "route", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "route", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	}
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := RouteName(c)
		if route == "" {
			route = "unmatched"
		}
		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, route, "http").Inc()
		}
	}
}
