package stats

import (
	"math"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Predictor forecasts demand for the next period from a window of records.
type Predictor interface {
	Predict(records []*model.Appointment, windowDays int) model.DemandPrediction
}

// GrowthPredictor assumes the next period grows by a fixed factor.
type GrowthPredictor struct {
	Factor          float64
	TrendPercentage int
	Confidence      int
}

func DefaultPredictor() GrowthPredictor {
	return GrowthPredictor{Factor: 1.1, TrendPercentage: 10, Confidence: 85}
}

func (p GrowthPredictor) Predict(records []*model.Appointment, _ int) model.DemandPrediction {
	return model.DemandPrediction{
		NextPeriod:      int(math.Floor(float64(len(records))*p.Factor + 0.5)),
		TrendPercentage: p.TrendPercentage,
		Confidence:      p.Confidence,
	}
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(records []*model.Appointment, windowDays int) model.DemandPrediction

func (f PredictorFunc) Predict(records []*model.Appointment, windowDays int) model.DemandPrediction {
	return f(records, windowDays)
}
