package interpreter

// Period is one dated slice of a multi-period financial observation.
type Period struct {
	Period     string
	PeriodType string
	PeriodEnd  string
	Data       map[string]float64
}

// FinancialObservation is either a flat single-period metric map or a
// sequence of periods plus optional pre-computed trailing aggregates.
type FinancialObservation struct {
	Flat     map[string]float64
	Periods  []Period
	Trailing map[string]map[string]float64
}

// IsMultiPeriod reports whether this observation carries period data.
func (f *FinancialObservation) IsMultiPeriod() bool {
	return f != nil && len(f.Periods) > 0
}

// clone deep-copies the observation so the interpreter never shares
// storage with caller-owned data.
func (f *FinancialObservation) clone() *FinancialObservation {
	if f == nil {
		return &FinancialObservation{Flat: map[string]float64{}}
	}
	out := &FinancialObservation{}
	if f.Flat != nil {
		out.Flat = make(map[string]float64, len(f.Flat))
		for k, v := range f.Flat {
			out.Flat[k] = v
		}
	}
	for _, p := range f.Periods {
		cp := Period{Period: p.Period, PeriodType: p.PeriodType, PeriodEnd: p.PeriodEnd}
		cp.Data = make(map[string]float64, len(p.Data))
		for k, v := range p.Data {
			cp.Data[k] = v
		}
		out.Periods = append(out.Periods, cp)
	}
	if f.Trailing != nil {
		out.Trailing = make(map[string]map[string]float64, len(f.Trailing))
		for k, m := range f.Trailing {
			cm := make(map[string]float64, len(m))
			for k2, v2 := range m {
				cm[k2] = v2
			}
			out.Trailing[k] = cm
		}
	}
	return out
}

// periodByKey finds the period with the given key, or nil.
func (f *FinancialObservation) periodByKey(key string) *Period {
	for i := range f.Periods {
		if f.Periods[i].Period == key {
			return &f.Periods[i]
		}
	}
	return nil
}

// periodIndex returns the index of the period with the given key, or -1.
func (f *FinancialObservation) periodIndex(key string) int {
	for i := range f.Periods {
		if f.Periods[i].Period == key {
			return i
		}
	}
	return -1
}

// currentData returns the metric map the interpreter should read for
// the given evaluation period key ("" meaning the flat observation).
func (f *FinancialObservation) currentData(periodKey string) map[string]float64 {
	if periodKey == "" {
		return f.Flat
	}
	if p := f.periodByKey(periodKey); p != nil {
		return p.Data
	}
	return nil
}
