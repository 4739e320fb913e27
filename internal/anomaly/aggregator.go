package anomaly

import "github.com/halfpoint/medianengine/internal/models"

// Aggregate merges detector reports into one verdict. Findings concatenate in
// report order; severity is the max across reports, 0 when empty. Detector
// confidence is not applied here; it informs tuning, never suppresses a
// finding.
func Aggregate(reports []models.AnomalyReport) models.AggregatedVerdict {
	verdict := models.AggregatedVerdict{}
	for _, rep := range reports {
		verdict.Findings = append(verdict.Findings, rep.Findings...)
		if rep.Severity > verdict.Severity {
			verdict.Severity = rep.Severity
		}
	}
	verdict.HasAnomalies = len(verdict.Findings) > 0
	return verdict
}
