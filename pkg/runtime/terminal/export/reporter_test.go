package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_RulesReport(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	report := rules.Report{
		Applied: []rules.RuleOutcome{{
			Rule:     domain.Rule{Line: 1, Kind: domain.RuleAssetGroupAdd, Tokens: []string{"add", "assetgroup", "prod"}},
			Outcome:  rules.OutcomeApplied,
			Affected: 1,
		}},
		Failed: []rules.RuleOutcome{{
			Rule:    domain.Rule{Line: 3, Kind: domain.RuleMaskService},
			Outcome: rules.OutcomeFailed,
			Err:     errors.New("throttled"),
		}},
		Unparsed: []domain.UnparsedRule{{Line: 2, Text: "bogus line"}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Handle(RulesReport("rules.txt", report, start, start.Add(2*time.Second))))

	out := buf.String()
	assert.Contains(t, out, "rules.txt")
	assert.Contains(t, out, "Run: 2024-03-01T12:00:00Z (2s)")
	assert.Contains(t, out, "applied: 1")
	assert.Contains(t, out, "=== Failed ===")
	assert.Contains(t, out, "throttled")
	assert.Contains(t, out, "bogus line")
	assert.Contains(t, out, "add assetgroup prod")
}

func TestReporter_LintReportWithoutPeriod(t *testing.T) {
	result := rules.Result{
		Rules: []domain.Rule{{Line: 1, Kind: domain.RuleAddService, Tokens: []string{"add", "service", "Widgets"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Handle(LintReport("lint", result)))

	assert.NotContains(t, buf.String(), "Run:")
	assert.Contains(t, buf.String(), string(domain.RuleAddService))
	assert.NotContains(t, buf.String(), "Unparsed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
