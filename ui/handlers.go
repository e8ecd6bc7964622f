package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"biasclean/adapters/excel"
	"biasclean/app"
	"biasclean/domain/core"
	"biasclean/domain/fairness"
	"biasclean/internal/config"
	"biasclean/internal/errors"
	"biasclean/ports"
)

// domainInfo is one entry of GET /api/v1/domains
type domainInfo struct {
	Domain  fairness.Domain            `json:"domain"`
	Weights []fairness.AttributeWeight `json:"weights"`
}

func (s *Server) handleDomains(c *gin.Context) {
	var out []domainInfo
	for _, d := range fairness.Domains() {
		table, err := d.DefaultWeights()
		if err != nil {
			s.respondError(c, err)
			return
		}
		out = append(out, domainInfo{Domain: d, Weights: table.Entries})
	}
	c.JSON(http.StatusOK, gin.H{"domains": out, "count": len(out)})
}

func (s *Server) handleScore(c *gin.Context) {
	req, err := s.parseRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	res, err := s.service.Score(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleMitigate returns the report as JSON, or the mitigated dataset when
// ?download=csv|xlsx is set
func (s *Server) handleMitigate(c *gin.Context) {
	req, err := s.parseRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	res, err := s.service.Mitigate(c.Request.Context(), req)
	if err != nil {
		// the run itself succeeded when only the report store failed
		if res == nil || errors.GetCode(err) != errors.CodeDatabaseError {
			s.respondError(c, err)
			return
		}
		_ = c.Error(err)
		s.logger.Warn("returning run %s unsaved: %v", res.Report.RunID, err)
		c.Header("X-Report-Warning", "report not stored: "+err.Error())
	}

	download := c.Query("download")
	if download == "" {
		c.JSON(http.StatusOK, res.Report)
		return
	}

	format := ports.Format(strings.ToLower(download))
	var buf bytes.Buffer
	if err := excel.NewDataWriter().WriteTo(c.Request.Context(), &buf, format, res.Dataset); err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	contentType := "text/csv"
	if format == ports.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("X-Run-ID", res.Report.RunID.String())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="mitigated-%s.%s"`, res.Report.RunID, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) handleListReports(c *gin.Context) {
	filters := ports.ReportFilters{Limit: 50}
	if v := c.Query("domain"); v != "" {
		d, err := fairness.ParseDomain(v)
		if err != nil {
			s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
			return
		}
		filters.Domain = &d
	}
	if v := c.Query("state"); v != "" {
		state := fairness.ConvergenceState(strings.ToUpper(v))
		filters.State = &state
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			s.respondError(c, errors.InvalidInput("limit must be between 1 and 500"))
			return
		}
		filters.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			s.respondError(c, errors.InvalidInput("offset must be a non-negative integer"))
			return
		}
		filters.Offset = offset
	}

	reports, err := s.service.ListReports(c.Request.Context(), filters)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.service.GetReport(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleReportDocument(format string) gin.HandlerFunc {
	contentType := "text/html; charset=utf-8"
	if format == "markdown" {
		contentType = "text/markdown; charset=utf-8"
	}
	return func(c *gin.Context) {
		doc, err := s.service.RenderReport(c.Request.Context(), core.RunID(c.Param("id")), format)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, contentType, doc)
	}
}

// parseRequest reads the multipart upload shared by score and mitigate:
// file, domain, outcome, and optional positive, weights (JSON object),
// config (YAML overlay) and categorical (comma-separated columns)
func (s *Server) parseRequest(c *gin.Context) (app.MitigationRequest, error) {
	var req app.MitigationRequest

	domain := c.PostForm("domain")
	outcome := c.PostForm("outcome")
	if domain == "" || outcome == "" {
		return req, errors.InvalidInput("domain and outcome are required")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return req, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("dataset file is required: %w", err))
	}
	format, err := excel.FormatFor(header.Filename)
	if err != nil {
		return req, errors.WithCode(errors.CodeInvalidInput, err)
	}
	f, err := header.Open()
	if err != nil {
		return req, errors.Wrap(err, "failed to open upload")
	}
	defer f.Close()

	readerCfg := s.reader
	if v := c.PostForm("categorical"); v != "" {
		for _, col := range strings.Split(v, ",") {
			readerCfg.Categorical = append(readerCfg.Categorical, strings.TrimSpace(col))
		}
	}
	ds, err := excel.NewDataReader(readerCfg, s.logger).ReadFrom(c.Request.Context(), f, format)
	if err != nil {
		return req, errors.WithCode(errors.CodeInvalidInput, err)
	}

	runCfg := s.cfg.RunConfig(outcome)
	if v := c.PostForm("config"); v != "" {
		runCfg, err = config.ParseRunConfig([]byte(v), runCfg)
		if err != nil {
			return req, errors.WithCode(errors.CodeInvalidInput, err)
		}
	}
	runCfg.OutcomeColumn = outcome
	if v := c.PostForm("positive"); v != "" {
		runCfg.PositiveOutcome = v
	}

	if v := c.PostForm("weights"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Weights); err != nil {
			return req, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("weights must be a JSON object: %w", err))
		}
	}

	req.Dataset = ds
	req.Domain = domain
	req.Config = runCfg
	return req, nil
}

// respondError maps AppError codes to HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	_ = c.Error(err)
	c.JSON(errors.HTTPStatus(code), gin.H{"error": err.Error(), "code": code})
}
