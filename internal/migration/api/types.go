package api

import "github.com/qiniu/rulemigrator/internal/migration/model"

// error codes
const (
	ErrorCodeInvalidParameter = "INVALID_PARAMETER"
	ErrorCodeRunNotFound      = "RUN_NOT_FOUND"
	ErrorCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrorCodeInternalError    = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`
}

// MigrateRequest carries legacy rules either as a raw rule file or as decoded groups.
type MigrateRequest struct {
	RulesYAML string                  `json:"rules_yaml" validate:"required_without=Groups"`
	Groups    []model.LegacyRuleGroup `json:"groups" validate:"required_without=RulesYAML"`
	Prefix    string                  `json:"prefix" validate:"omitempty,metricprefix"`
	// Persist stores the run for later retrieval; defaults to true when omitted.
	Persist *bool `json:"persist"`
}

// MigrateResponse wraps a finished run.
type MigrateResponse struct {
	ID      string                   `json:"id"`
	Summary model.Summary            `json:"summary"`
	Pairs   int                      `json:"suppression_pairs"`
	Files   []string                 `json:"files"`
	Results []*model.MigrationResult `json:"results"`
}
