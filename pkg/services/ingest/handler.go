package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/de-tools/service-map/pkg/services/rules"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/rs/zerolog"
)

type FileReport struct {
	Bucket string
	Key    string
	Report rules.Report
	Err    error
}

// Handler fetches uploaded rule files and applies them to the entity
// store, one file at a time per store.
type Handler struct {
	blobs   blob.Store
	applier *rules.Applier
	locks   *Locks
	lockKey string
}

func NewHandler(blobs blob.Store, store entity.Store, locks *Locks, lockKey string) (*Handler, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locks are required")
	}
	applier, err := rules.NewApplier(store)
	if err != nil {
		return nil, err
	}
	return &Handler{blobs: blobs, applier: applier, locks: locks, lockKey: lockKey}, nil
}

// HandleObject applies the rule file stored at bucket/key.
func (h *Handler) HandleObject(ctx context.Context, bucket, key string) (rules.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("bucket", bucket).Str("key", key).Logger()
	ctx = logger.WithContext(ctx)

	release, err := h.locks.Acquire(ctx, h.lockKey)
	if err != nil {
		return rules.Report{}, err
	}
	defer release()

	body, err := h.blobs.Get(ctx, bucket, key)
	if err != nil {
		return rules.Report{}, fmt.Errorf("fetch rule file: %w", err)
	}
	return h.ApplyDocument(ctx, string(body))
}

// ApplyDocument applies an already fetched rule document. Callers outside
// HandleObject must hold the store lock themselves.
func (h *Handler) ApplyDocument(ctx context.Context, text string) (rules.Report, error) {
	report, err := h.applier.ApplyText(ctx, text)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("failed", len(report.Failed)).Msg("Rule file failed")
		return report, fmt.Errorf("apply rule file: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Int("applied", len(report.Applied)).
		Int("noop", len(report.NoOp)).
		Int("unparsed", len(report.Unparsed)).
		Msg("Rule file applied")
	return report, nil
}

// Lock takes the store lock HandleObject uses.
func (h *Handler) Lock(ctx context.Context) (func(), error) {
	return h.locks.Acquire(ctx, h.lockKey)
}

// HandleS3Event processes every created object in the event
// independently. Removal events are ignored.
func (h *Handler) HandleS3Event(ctx context.Context, event events.S3Event) ([]FileReport, error) {
	logger := zerolog.Ctx(ctx)
	reports := make([]FileReport, 0, len(event.Records))
	var errs []error

	for _, record := range event.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated") {
			logger.Debug().Str("event", record.EventName).Msg("Skipping event")
			continue
		}
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			err = fmt.Errorf("unescape key %q: %w", record.S3.Object.Key, err)
			reports = append(reports, FileReport{Bucket: bucket, Key: record.S3.Object.Key, Err: err})
			errs = append(errs, err)
			continue
		}

		report, err := h.HandleObject(ctx, bucket, key)
		if err != nil {
			err = fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
			errs = append(errs, err)
		}
		reports = append(reports, FileReport{Bucket: bucket, Key: key, Report: report, Err: err})
	}
	return reports, errors.Join(errs...)
}
