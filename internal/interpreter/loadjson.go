package interpreter

import "encoding/json"

// wireObservation mirrors the external JSON shape: either a flat
// {metric: number, ...} object, or {periods: [...], trailing: {...}}.
type wirePeriod struct {
	Period     string             `json:"period"`
	PeriodType string             `json:"periodType"`
	PeriodEnd  string             `json:"periodEnd"`
	Data       map[string]float64 `json:"data"`
}

type wireObservation struct {
	Periods  []wirePeriod                  `json:"periods"`
	Trailing map[string]map[string]float64 `json:"trailing"`
}

// ParseObservation decodes financial data in either of the two shapes
// described for loadFinancials: a flat metric map, or a multi-period
// document with an optional trailing-aggregates block.
func ParseObservation(data []byte) (*FinancialObservation, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["periods"]; ok {
		var w wireObservation
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		obs := &FinancialObservation{Trailing: w.Trailing}
		for _, p := range w.Periods {
			obs.Periods = append(obs.Periods, Period{
				Period: p.Period, PeriodType: p.PeriodType, PeriodEnd: p.PeriodEnd, Data: p.Data,
			})
		}
		return obs, nil
	}

	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, err
	}
	return &FinancialObservation{Flat: flat}, nil
}
