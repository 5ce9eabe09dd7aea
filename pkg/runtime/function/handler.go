package function

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/de-tools/service-map/pkg/services/ingest"
	"github.com/de-tools/service-map/pkg/services/workflow"
	"github.com/rs/zerolog"
)

const scheduledEvent = "Scheduled Event"

type Response struct {
	Files    int    `json:"files,omitempty"`
	Applied  int    `json:"applied,omitempty"`
	Unparsed int    `json:"unparsed,omitempty"`
	Workflow string `json:"workflow,omitempty"`
	Status   string `json:"status"`
}

// Handler dispatches Lambda invocations: S3 notifications apply rule files,
// scheduled events run one aggregation pass.
type Handler struct {
	ingest *ingest.Handler
	runner *workflow.Runner
}

func NewHandler(ingestHandler *ingest.Handler, runner *workflow.Runner) (*Handler, error) {
	if ingestHandler == nil || runner == nil {
		return nil, fmt.Errorf("ingest handler and runner are required")
	}
	return &Handler{ingest: ingestHandler, runner: runner}, nil
}

type envelope struct {
	Records    []json.RawMessage `json:"Records"`
	DetailType string            `json:"detail-type"`
}

func (h *Handler) Invoke(ctx context.Context, payload json.RawMessage) (Response, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Response{}, fmt.Errorf("decode event: %w", err)
	}

	switch {
	case len(env.Records) > 0:
		var event events.S3Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return Response{}, fmt.Errorf("decode S3 event: %w", err)
		}
		return h.handleS3(ctx, event)
	case env.DetailType == scheduledEvent:
		return h.handleSchedule(ctx)
	default:
		return Response{}, errors.New("unsupported event")
	}
}

func (h *Handler) handleS3(ctx context.Context, event events.S3Event) (Response, error) {
	reports, err := h.ingest.HandleS3Event(ctx, event)
	resp := Response{Files: len(reports), Status: "ok"}
	for _, r := range reports {
		resp.Applied += len(r.Report.Applied)
		resp.Unparsed += len(r.Report.Unparsed)
	}
	if err != nil {
		resp.Status = "failed"
	}
	return resp, err
}

func (h *Handler) handleSchedule(ctx context.Context) (Response, error) {
	progress, err := h.runner.RunOnce(ctx)
	zerolog.Ctx(ctx).Info().
		Str("workflow_id", progress.Workflow.ID).
		Str("status", string(progress.Workflow.Status)).
		Int("assets_updated", progress.Summary.AssetsUpdated).
		Int("services_updated", progress.Summary.ServicesUpdated).
		Msg("Scheduled aggregation finished")
	return Response{
		Workflow: progress.Workflow.ID,
		Status:   string(progress.Workflow.Status),
	}, err
}
