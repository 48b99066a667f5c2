// Package api exposes migration runs over HTTP.
package api

import (
	"github.com/fox-gonic/fox"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/migration/analyzer"
	"github.com/qiniu/rulemigrator/internal/migration/audit"
	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/qiniu/rulemigrator/internal/migration/service"
)

// Deps are the collaborators of the API.
type Deps struct {
	Analyzer analyzer.Analyzer
	Options  service.Options
	Archive  *audit.Archive
	Metrics  *service.Metrics
	Gatherer prometheus.Gatherer
}

// Api serves migration runs.
type Api struct {
	deps     Deps
	validate *validator.Validate
	router   *fox.Engine
}

// NewApi registers the routes on router.
func NewApi(deps Deps, router *fox.Engine) (*Api, error) {
	if deps.Archive == nil {
		deps.Archive = audit.NewArchive(audit.NewMemStore(), nil)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	api := &Api{deps: deps, validate: config.Validator(), router: router}
	api.setupRouters(router)
	return api, nil
}

func (api *Api) setupRouters(router *fox.Engine) {
	router.POST("/v1/migrations", api.CreateMigration)
	router.GET("/v1/migrations/:id", api.GetMigration)
	router.GET("/v1/migrations/:id/files/:name", api.GetMigrationFile)

	metrics := promhttp.HandlerFor(api.deps.Gatherer, promhttp.HandlerOpts{})
	router.GET("/metrics", func(c *fox.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})
}

// SendErrorResponse writes the standard error body.
func SendErrorResponse(c *fox.Context, statusCode int, errorCode, message string, extras map[string]string) {
	detail := ErrorDetail{Code: errorCode, Message: message}
	if extras != nil {
		detail.Parameter = extras["parameter"]
		detail.Value = extras["value"]
	}
	c.JSON(statusCode, ErrorResponse{Error: detail})
}

func (api *Api) migrator(prefix string) *service.Migrator {
	opts := api.deps.Options
	if prefix != "" {
		opts.Prefix = prefix
	}
	return service.NewMigrator(api.deps.Analyzer, opts).WithMetrics(api.deps.Metrics)
}

func ruleFile(req *MigrateRequest) (*model.LegacyRuleFile, error) {
	if req.RulesYAML != "" {
		return service.ParseRuleFile([]byte(req.RulesYAML))
	}
	return &model.LegacyRuleFile{Groups: req.Groups}, nil
}
