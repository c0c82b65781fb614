package forecast

import (
	"strings"

	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// MergeReport counts what the merge had to drop or default
type MergeReport struct {
	Unmatched    []string // interpretations naming no known model
	Duplicates   []string // repeated interpretations for one model (first wins)
	NonConformed []string // models whose label was outside Alta/Media/Baja
	Missing      []string // models with no interpretation at all
}

// Merge attaches interpretations to model results by normalized model id.
// The output has exactly one row per model, in executor order.
func Merge(models []contracts.ModelResult, interps []contracts.Interpretation) ([]contracts.EvaluatedModel, MergeReport) {
	var report MergeReport

	known := make(map[string]struct{}, len(models))
	for _, m := range models {
		known[contracts.NormalizeModelID(m.ModelID)] = struct{}{}
	}

	byModel := make(map[string]contracts.Interpretation, len(interps))
	for _, in := range interps {
		key := contracts.NormalizeModelID(in.ModelID)
		if _, ok := known[key]; !ok {
			report.Unmatched = append(report.Unmatched, in.ModelID)
			continue
		}
		if _, dup := byModel[key]; dup {
			report.Duplicates = append(report.Duplicates, in.ModelID)
			continue
		}
		byModel[key] = in
	}

	out := make([]contracts.EvaluatedModel, 0, len(models))
	for _, m := range models {
		em := contracts.EvaluatedModel{
			ModelID:        m.ModelID,
			MAE:            m.Metrics.MAE,
			MAPE:           m.Metrics.MAPE,
			R2:             m.Metrics.R2,
			Precision:      contracts.PrecisionNotAssessed,
			Recommendation: contracts.DefaultRecommendation,
			Predictions:    m.Predictions,
		}
		if em.Predictions == nil {
			em.Predictions = []contracts.ModelPoint{}
		}

		in, ok := byModel[contracts.NormalizeModelID(m.ModelID)]
		if !ok {
			report.Missing = append(report.Missing, m.ModelID)
			out = append(out, em)
			continue
		}

		if p, valid := contracts.ParsePrecision(in.Precision); valid {
			em.Precision = p
		} else {
			report.NonConformed = append(report.NonConformed, m.ModelID)
		}
		if r := strings.TrimSpace(in.Recommendation); r != "" {
			em.Recommendation = r
		}
		out = append(out, em)
	}

	return out, report
}

func (r MergeReport) log(log *logger.Logger) {
	if len(r.Unmatched)+len(r.Duplicates)+len(r.NonConformed)+len(r.Missing) == 0 {
		return
	}
	log.WithFields(map[string]interface{}{
		"unmatched":     r.Unmatched,
		"duplicates":    r.Duplicates,
		"non_conformed": r.NonConformed,
		"missing":       r.Missing,
	}).Warn("interpretation merge degraded")
}
