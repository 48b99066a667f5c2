package api

import (
	"errors"
	"net/http"
	"path"

	"github.com/fox-gonic/fox"
	"github.com/google/uuid"
	"github.com/qiniu/rulemigrator/internal/migration/audit"
	"github.com/qiniu/rulemigrator/internal/migration/output"
	"github.com/rs/zerolog/log"
)

// CreateMigration migrates the posted rules and returns the run.
func (api *Api) CreateMigration(c *fox.Context) {
	var req MigrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidParameter,
			"Invalid request body: "+err.Error(), nil)
		return
	}
	if err := api.validate.Struct(&req); err != nil {
		SendErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidParameter,
			"Invalid request: "+err.Error(), nil)
		return
	}

	file, err := ruleFile(&req)
	if err != nil {
		SendErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidParameter,
			err.Error(), map[string]string{"parameter": "rules_yaml"})
		return
	}

	report := api.migrator(req.Prefix).Run(file)
	artifacts, err := output.Render(report)
	if err != nil {
		SendErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError,
			"Failed to render migration output: "+err.Error(), nil)
		return
	}

	if req.Persist == nil || *req.Persist {
		if err := api.deps.Archive.Save(c.Request.Context(), report); err != nil {
			log.Error().Err(err).Str("run_id", report.ID).Msg("failed to persist migration run")
			SendErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError,
				"Failed to persist migration run: "+err.Error(), nil)
			return
		}
	}

	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		files = append(files, a.Name)
	}
	c.JSON(http.StatusCreated, MigrateResponse{
		ID:      report.ID,
		Summary: report.Summary,
		Pairs:   report.Pairs,
		Files:   files,
		Results: report.Results,
	})
}

// GetMigration returns a stored run.
func (api *Api) GetMigration(c *fox.Context) {
	id, ok := api.runID(c)
	if !ok {
		return
	}
	report, err := api.deps.Archive.Load(c.Request.Context(), id)
	if err != nil {
		api.sendLoadError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetMigrationFile renders one output file of a stored run.
func (api *Api) GetMigrationFile(c *fox.Context) {
	id, ok := api.runID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	report, err := api.deps.Archive.Load(c.Request.Context(), id)
	if err != nil {
		api.sendLoadError(c, id, err)
		return
	}
	artifacts, err := output.Render(report)
	if err != nil {
		SendErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError,
			"Failed to render migration output: "+err.Error(), nil)
		return
	}
	for _, a := range artifacts {
		if a.Name == name {
			c.Data(http.StatusOK, contentType(name), a.Data)
			return
		}
	}
	SendErrorResponse(c, http.StatusNotFound, ErrorCodeFileNotFound,
		"No such output file", map[string]string{"parameter": "name", "value": name})
}

func (api *Api) runID(c *fox.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		SendErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidParameter,
			"Run id must be a UUID", map[string]string{"parameter": "id", "value": id})
		return "", false
	}
	return id, true
}

func (api *Api) sendLoadError(c *fox.Context, id string, err error) {
	if errors.Is(err, audit.ErrRunNotFound) {
		SendErrorResponse(c, http.StatusNotFound, ErrorCodeRunNotFound,
			"Migration run not found", map[string]string{"parameter": "id", "value": id})
		return
	}
	SendErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Failed to load migration run: "+err.Error(), nil)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/yaml"
	}
}
