package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Indicator struct {
	ID                  string
	AssetID             string
	Timestamp           time.Time
	Description         string
	EventSourceName     string
	LikelihoodIndicator string
	Details             Details // nil when the payload carried no known shape
}

type DetailsKind string

const (
	DetailsVulnerabilitySummary DetailsKind = "vulnerability_summary"
	DetailsObservatoryScore     DetailsKind = "observatory_score"
	DetailsDastVulnerabilities  DetailsKind = "dast_vulnerabilities"
)

// Details is the shape-selected payload of an indicator. The concrete types
// below are the only implementations.
type Details interface {
	Kind() DetailsKind
	isDetails()
}

type VulnerabilitySummary struct {
	Coverage bool `json:"coverage"`
	Maximum  int  `json:"maximum"`
	High     int  `json:"high"`
	Medium   int  `json:"medium"`
	Low      int  `json:"low"`
}

type ObservatoryScore struct {
	Grade string `json:"grade"`
	Tests []any  `json:"tests"`
}

type DastVulnerabilities struct {
	Findings []any `json:"findings"`
}

func (VulnerabilitySummary) Kind() DetailsKind { return DetailsVulnerabilitySummary }
func (ObservatoryScore) Kind() DetailsKind     { return DetailsObservatoryScore }
func (DastVulnerabilities) Kind() DetailsKind  { return DetailsDastVulnerabilities }

func (VulnerabilitySummary) isDetails() {}
func (ObservatoryScore) isDetails()     {}
func (DastVulnerabilities) isDetails()  {}

// detailsClaims is checked in order; the first discriminating key present
// in the payload selects the shape.
var detailsClaims = []struct {
	key    string
	decode func([]byte) (Details, error)
}{
	{"coverage", decodeAs[VulnerabilitySummary]},
	{"grade", decodeAs[ObservatoryScore]},
	{"findings", decodeAs[DastVulnerabilities]},
}

func decodeAs[T Details](buf []byte) (Details, error) {
	var v T
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeDetails selects the details variant by key presence. A payload with
// none of the discriminating keys yields nil details and no error.
func DecodeDetails(raw map[string]any) (Details, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	for _, claim := range detailsClaims {
		if _, ok := raw[claim.key]; !ok {
			continue
		}
		buf, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode details: %w", err)
		}
		d, err := claim.decode(buf)
		if err != nil {
			return nil, fmt.Errorf("decode %s details: %w", claim.key, err)
		}
		return d, nil
	}
	return nil, nil
}

// EncodeDetails flattens details back into the attribute map persisted with
// the indicator.
func EncodeDetails(d Details) (map[string]any, error) {
	if d == nil {
		return nil, nil
	}
	buf, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s details: %w", d.Kind(), err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", d.Kind(), err)
	}
	return raw, nil
}
