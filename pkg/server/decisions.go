package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/export"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/telemetry/logging"
)

// ParseQuery builds a decision query from URL parameters:
//
//	startTime, endTime    RFC 3339 timestamps, inclusive
//	id                    repeatable or comma-separated record IDs
//	useCaseId, tier, isModel, ruleId, rulesetHash
//	hasMissingEvidence    boolean
//	limit, offset         integers
//	sortBy, sortOrder     see decision.SortFields
//
// The returned query has been validated and has defaults applied.
func ParseQuery(values url.Values) (*decision.Query, error) {
	q := &decision.Query{
		UseCaseID:   values.Get("useCaseId"),
		Tier:        values.Get("tier"),
		IsModel:     ast.Determination(values.Get("isModel")),
		RuleID:      values.Get("ruleId"),
		RulesetHash: values.Get("rulesetHash"),
		SortBy:      values.Get("sortBy"),
		SortOrder:   values.Get("sortOrder"),
	}

	for _, v := range values["id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.IDs = append(q.IDs, id)
			}
		}
	}

	var err error
	if q.StartTime, err = parseTime(values, "startTime"); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTime(values, "endTime"); err != nil {
		return nil, err
	}
	if v := values.Get("hasMissingEvidence"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid hasMissingEvidence %q: must be a boolean", v)
		}
		q.HasMissingEvidence = &b
	}
	if q.Limit, err = parseInt(values, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = parseInt(values, "offset"); err != nil {
		return nil, err
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()
	return q, nil
}

func parseTime(values url.Values, name string) (*time.Time, error) {
	v := values.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be RFC 3339", name, v)
	}
	return &t, nil
}

func parseInt(values url.Values, name string) (int, error) {
	v := values.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, v)
	}
	return n, nil
}

// handleListDecisions queries the decision log. With ?format=json|csv the
// matching page is streamed as an export file instead of a paged envelope.
func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, CodeInvalidQuery, err)
		return
	}

	ctx := r.Context()
	records, err := s.deps.Store.Query(ctx, q)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, CodeStorageFailed, err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		exporter, err := export.New(format, false)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, CodeInvalidQuery, err)
			return
		}
		setAttachmentHeaders(w, "decisions", format)
		if err := exporter.Export(ctx, records, w); err != nil {
			logging.FromContext(ctx).Error("decision export failed", "format", format, "error", err)
		}
		return
	}

	total, err := s.deps.Store.Count(ctx, q)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, CodeStorageFailed, err)
		return
	}

	render.JSON(w, r, DecisionList{
		Decisions: records,
		Total:     total,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
}

// handleGetDecision returns one decision record.
func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupDecision(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, record)
}

// handleChecklist returns the evidence checklist of a decision, joined with
// artifact definitions from the active ruleset.
func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupDecision(w, r)
	if !ok {
		return
	}
	rs := s.deps.Rules.Current()

	format := r.URL.Query().Get("format")
	switch format {
	case "", export.FormatJSON:
		render.JSON(w, r, map[string]any{
			"decisionId":  record.ID,
			"rulesetHash": record.RulesetHash,
			"items":       export.BuildChecklist(record, rs),
		})
	case export.FormatCSV:
		setAttachmentHeaders(w, "checklist-"+record.ID, format)
		exporter := export.NewChecklistExporter(format, rs)
		if err := exporter.Export(r.Context(), []*decision.Record{record}, w); err != nil {
			logging.FromContext(r.Context()).Error("checklist export failed", "decision_id", record.ID, "error", err)
		}
	default:
		s.respondError(w, r, http.StatusBadRequest, CodeInvalidQuery,
			fmt.Errorf("unsupported format %q (use %q or %q)", format, export.FormatJSON, export.FormatCSV))
	}
}

func (s *Server) lookupDecision(w http.ResponseWriter, r *http.Request) (*decision.Record, bool) {
	id := chi.URLParam(r, "id")
	record, err := s.deps.Store.Get(r.Context(), id)
	if errors.Is(err, decision.ErrNotFound) {
		s.respondError(w, r, http.StatusNotFound, CodeNotFound, fmt.Errorf("decision %q not found", id))
		return nil, false
	}
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, CodeStorageFailed, err)
		return nil, false
	}
	return record, true
}

func setAttachmentHeaders(w http.ResponseWriter, name, format string) {
	contentType := "application/json"
	if format == export.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
}
