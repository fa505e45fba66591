package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/telemetry/logging"
	"keystone-mrm/arbiter/pkg/telemetry/tracing"
	"keystone-mrm/arbiter/pkg/usecase"
)

// EvaluateRequest is the body of POST /v1/evaluate and POST /v1/explain.
// Exactly one of Record and Attributes may be set; neither means an empty
// record.
type EvaluateRequest struct {
	UseCaseID   string               `json:"useCaseId,omitempty"`
	Record      *usecase.Record      `json:"record,omitempty"`
	Attributes  map[string]any       `json:"attributes,omitempty"`
	Attachments []usecase.Attachment `json:"attachments,omitempty"`

	// Persist overrides the server's persistence default for this request.
	Persist *bool `json:"persist,omitempty"`
}

// useCase builds the record to evaluate.
func (req *EvaluateRequest) useCase() (usecase.Record, error) {
	if req.Record != nil && req.Attributes != nil {
		return usecase.Record{}, errors.New("record and attributes are mutually exclusive")
	}
	if req.Record != nil {
		return usecase.New(*req.Record, req.Attachments), nil
	}
	return usecase.FromAttributes(req.Attributes, req.Attachments)
}

// EvaluateResponse is the body of a successful evaluation.
type EvaluateResponse struct {
	*engine.Evaluation

	DecisionID string `json:"decisionId,omitempty"`
	Persisted  bool   `json:"persisted"`
}

// DecisionList is the body of GET /v1/decisions.
type DecisionList struct {
	Decisions []*decision.Record `json:"decisions"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// FieldView describes one field conditions may reference.
type FieldView struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Derived     bool   `json:"derived"`
}

// decodeUseCase reads an EvaluateRequest and builds its record, writing the
// error response itself on failure.
func (s *Server) decodeUseCase(w http.ResponseWriter, r *http.Request) (*EvaluateRequest, *usecase.Record, bool) {
	req := &EvaluateRequest{}
	if err := render.DecodeJSON(r.Body, req); err != nil {
		status, code := decodeError(err)
		s.respondError(w, r, status, code, fmt.Errorf("invalid request body: %w", err))
		return nil, nil, false
	}
	rec, err := req.useCase()
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, CodeInvalidRecord, err)
		return nil, nil, false
	}
	return req, &rec, true
}

// handleEvaluate evaluates a use case and optionally records the decision.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req, rec, ok := s.decodeUseCase(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if req.UseCaseID != "" {
		ctx = logging.WithUseCaseID(ctx, req.UseCaseID)
	}
	ctx, span := s.deps.Telemetry.Tracer().Start(ctx, "rules.evaluate")
	defer span.End()

	ev, err := s.deps.Engine.Evaluate(ctx, rec)
	tracing.SetStatus(span, err)
	if err != nil {
		s.evaluationFailed(w, r, err)
		return
	}
	tracing.SetEvaluationAttributes(span, ev)
	if req.UseCaseID != "" {
		span.SetAttributes(attribute.String(tracing.AttrUseCaseID, req.UseCaseID))
	}

	resp := &EvaluateResponse{Evaluation: ev}

	persist, err := s.shouldPersist(r, req.Persist)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}
	if persist {
		if s.deps.Recorder == nil {
			s.respondError(w, r, http.StatusServiceUnavailable, CodeStorageDisabled, errStorageDisabled)
			return
		}
		record, err := s.record(ctx, ev, req.UseCaseID, rec)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, CodeStorageFailed, err)
			return
		}
		resp.DecisionID = record.ID
		resp.Persisted = true
		span.SetAttributes(attribute.String(tracing.AttrDecisionID, record.ID))
		logging.FromContext(ctx).Info("decision recorded",
			"decision_id", record.ID,
			"ruleset_hash", record.RulesetHash,
			"async", s.deps.AsyncRecord,
		)
	}

	render.JSON(w, r, resp)
}

// handleExplain reports which rules and criteria matched, without recording.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := s.decodeUseCase(w, r)
	if !ok {
		return
	}

	ctx, span := s.deps.Telemetry.Tracer().Start(r.Context(), "rules.explain")
	defer span.End()

	exp, err := s.deps.Engine.Explain(ctx, rec)
	tracing.SetStatus(span, err)
	if err != nil {
		s.evaluationFailed(w, r, err)
		return
	}
	render.JSON(w, r, exp)
}

func (s *Server) evaluationFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNoRuleset):
		s.deps.Telemetry.Metrics().RecordEvaluationError("no_ruleset")
		s.respondError(w, r, http.StatusServiceUnavailable, CodeNoRuleset, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.deps.Telemetry.Metrics().RecordEvaluationError("cancelled")
		s.respondError(w, r, http.StatusServiceUnavailable, CodeInternal, err)
	default:
		s.deps.Telemetry.Metrics().RecordEvaluationError("internal")
		s.respondError(w, r, http.StatusInternalServerError, CodeInternal, err)
	}
}

// shouldPersist resolves persistence: the persist query parameter wins over
// the body field, which wins over the server default.
func (s *Server) shouldPersist(r *http.Request, body *bool) (bool, error) {
	if v := r.URL.Query().Get("persist"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return false, fmt.Errorf("invalid persist parameter %q", v)
		}
		return b, nil
	}
	if body != nil {
		return *body, nil
	}
	return s.deps.PersistByDefault, nil
}

func (s *Server) record(ctx context.Context, ev *engine.Evaluation, useCaseID string, rec *usecase.Record) (*decision.Record, error) {
	if s.deps.AsyncRecord {
		return s.deps.Recorder.RecordAsync(ctx, ev, useCaseID, rec)
	}
	return s.deps.Recorder.Record(ctx, ev, useCaseID, rec)
}

// handleFields lists the record fields rulesets may reference.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	fields := usecase.Fields()
	views := make([]FieldView, 0, len(fields))
	for _, f := range fields {
		views = append(views, FieldView{
			Name:        f.Name,
			Type:        string(f.Type),
			Description: f.Description,
			Derived:     f.Derived,
		})
	}
	render.JSON(w, r, views)
}

// handleRulesetStatus reports the active ruleset and reload counters.
func (s *Server) handleRulesetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.deps.Rules.Status())
}

// handleRulesetReload reloads the ruleset from its source. A failed reload
// keeps the previous ruleset active and answers 422.
func (s *Server) handleRulesetReload(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.deps.Telemetry.Tracer().Start(r.Context(), "rules.reload")
	defer span.End()

	err := s.deps.Rules.Reload(ctx)
	tracing.SetStatus(span, err)
	if err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, CodeReloadFailed, err)
		return
	}
	logging.FromContext(ctx).Info("ruleset reloaded via api", "hash", s.deps.Rules.Status().Hash)
	render.JSON(w, r, s.deps.Rules.Status())
}
