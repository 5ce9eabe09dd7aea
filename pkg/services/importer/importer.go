package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ServiceUpserter stores a reviewed service, matching existing ones on
// name and link.
type ServiceUpserter interface {
	UpsertService(ctx context.Context, svc domain.Service) (domain.Service, bool, error)
}

// Review is one service risk review row of an import file.
type Review struct {
	Name                      string `yaml:"name"`
	Link                      string `yaml:"link"`
	ServiceOwner              string `yaml:"service_owner"`
	Director                  string `yaml:"director"`
	ServiceDataClassification string `yaml:"service_data_classification"`
	HighestRiskImpact         string `yaml:"highest_risk_impact"`
	Recommendations           *int   `yaml:"recommendations"`
	HighestRecommendation     string `yaml:"highest_recommendation"`
	CreationDate              string `yaml:"creation_date"`
	ModificationDate          string `yaml:"modification_date"`
}

type File struct {
	Services []Review `yaml:"services"`
}

type RowError struct {
	Row  int
	Name string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Name, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type Result struct {
	Created int
	Updated int
	Failed  []RowError
}

func (r Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type Importer struct {
	services ServiceUpserter
}

func NewImporter(services ServiceUpserter) (*Importer, error) {
	if services == nil {
		return nil, fmt.Errorf("service upserter is required")
	}
	return &Importer{services: services}, nil
}

// Import reads a review file and upserts every row. A failing row is
// logged and recorded; the remaining rows are still processed.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("decode review file: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	var result Result
	for n, review := range file.Services {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row := n + 1
		svc, created, err := i.services.UpsertService(ctx, review.toDomain())
		if err != nil {
			logger.Warn().Err(err).Int("row", row).Str("name", review.Name).Msg("Service review not imported")
			result.Failed = append(result.Failed, RowError{Row: row, Name: review.Name, Err: err})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		logger.Debug().Str("service_id", svc.ID).Bool("created", created).Msg("Service review imported")
	}
	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Msg("Service review import finished")
	return result, nil
}

func (r Review) toDomain() domain.Service {
	return domain.Service{
		Name:                      r.Name,
		Link:                      r.Link,
		ServiceOwner:              r.ServiceOwner,
		Director:                  r.Director,
		ServiceDataClassification: r.ServiceDataClassification,
		HighestRiskImpact:         r.HighestRiskImpact,
		Recommendations:           r.Recommendations,
		HighestRecommendation:     r.HighestRecommendation,
		CreationDate:              r.CreationDate,
		ModificationDate:          r.ModificationDate,
	}
}
