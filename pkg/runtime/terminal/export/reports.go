package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/discovery"
	"github.com/de-tools/service-map/pkg/services/importer"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/services/rules"
)

func period(start, end time.Time) domain.TimePeriod {
	return domain.TimePeriod{Start: start, End: end}
}

// RulesReport renders the outcome of applying one rule document.
func RulesReport(title string, report rules.Report, start, end time.Time) *domain.Report {
	sections := []domain.ReportSection{{
		Title: "Summary",
		Summary: map[string]interface{}{
			"applied":  len(report.Applied),
			"no-op":    len(report.NoOp),
			"failed":   len(report.Failed),
			"unparsed": len(report.Unparsed),
		},
	}}
	for _, group := range []struct {
		title    string
		outcomes []rules.RuleOutcome
	}{
		{"Applied", report.Applied},
		{"No-op", report.NoOp},
		{"Failed", report.Failed},
	} {
		if len(group.outcomes) == 0 {
			continue
		}
		section := domain.ReportSection{Title: group.title}
		for _, o := range group.outcomes {
			desc := strings.Join(o.Rule.Tokens, " ")
			if o.Err != nil {
				desc = o.Err.Error()
			}
			section.Details = append(section.Details, domain.ReportDetail{
				Name:        fmt.Sprintf("line %d", o.Rule.Line),
				Value:       o.Rule.Kind,
				Unit:        fmt.Sprintf("%d", o.Affected),
				Description: desc,
			})
		}
		sections = append(sections, section)
	}
	if section, ok := unparsedSection(report.Unparsed); ok {
		sections = append(sections, section)
	}
	return &domain.Report{Title: title, Period: period(start, end), Sections: sections}
}

// LintReport lists how every line of a rule document was classified.
func LintReport(title string, result rules.Result) *domain.Report {
	section := domain.ReportSection{
		Title: "Rules",
		Summary: map[string]interface{}{
			"rules":    len(result.Rules),
			"unparsed": len(result.Unparsed),
		},
	}
	for _, r := range result.Rules {
		section.Details = append(section.Details, domain.ReportDetail{
			Name:        fmt.Sprintf("line %d", r.Line),
			Value:       r.Kind,
			Description: strings.Join(r.Tokens, " "),
		})
	}
	sections := []domain.ReportSection{section}
	if unparsed, ok := unparsedSection(result.Unparsed); ok {
		sections = append(sections, unparsed)
	}
	return &domain.Report{Title: title, Sections: sections}
}

func unparsedSection(unparsed []domain.UnparsedRule) (domain.ReportSection, bool) {
	if len(unparsed) == 0 {
		return domain.ReportSection{}, false
	}
	section := domain.ReportSection{Title: "Unparsed"}
	for _, u := range unparsed {
		section.Details = append(section.Details, domain.ReportDetail{
			Name:        fmt.Sprintf("line %d", u.Line),
			Value:       "unparsed",
			Description: u.Text,
		})
	}
	return section, true
}

func AggregationReport(summary risk.Summary, start, end time.Time) *domain.Report {
	return &domain.Report{
		Title:  "Risk aggregation",
		Period: period(start, end),
		Sections: []domain.ReportSection{{
			Title: "Summary",
			Summary: map[string]interface{}{
				"services":         summary.Services,
				"masked services":  summary.MaskedServices,
				"services updated": summary.ServicesUpdated,
				"assets":           summary.Assets,
				"assets updated":   summary.AssetsUpdated,
				"indicators":       summary.Indicators,
				"write failures":   summary.WriteFailures,
			},
		}},
	}
}

func ImportReport(result importer.Result, start, end time.Time) *domain.Report {
	section := domain.ReportSection{
		Title: "Service reviews",
		Summary: map[string]interface{}{
			"created": result.Created,
			"updated": result.Updated,
			"failed":  len(result.Failed),
		},
	}
	for _, f := range result.Failed {
		section.Details = append(section.Details, domain.ReportDetail{
			Name:        fmt.Sprintf("row %d", f.Row),
			Value:       f.Name,
			Description: f.Err.Error(),
		})
	}
	return &domain.Report{Title: "Service review import", Period: period(start, end), Sections: []domain.ReportSection{section}}
}

func DiscoveryReport(sources []string, result discovery.Result, start, end time.Time) *domain.Report {
	return &domain.Report{
		Title:  "Asset discovery (" + strings.Join(sources, ", ") + ")",
		Period: period(start, end),
		Sections: []domain.ReportSection{{
			Title: "Assets",
			Summary: map[string]interface{}{
				"discovered": result.Discovered,
				"created":    result.Created,
				"updated":    result.Updated,
			},
		}},
	}
}
