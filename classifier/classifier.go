// Package classifier adapts a zero-shot vision-language model to a simple
// image + candidate labels -> probabilities call.
package classifier

import (
	"context"
	"errors"
	"image"
	"math"
)

var (
	// ErrNoLabels is returned when Predict is called without candidate labels.
	ErrNoLabels = errors.New("classifier: at least one candidate label is required")
	// ErrModelUnavailable is returned once the model failed to load. The failure is permanent
	// for the lifetime of the process.
	ErrModelUnavailable = errors.New("classifier: model unavailable")
)

// Classifier scores an image against candidate labels. The returned map has one entry per
// distinct input label and its values sum to ~1.0.
type Classifier interface {
	Predict(ctx context.Context, img image.Image, labels []string) (map[string]float64, error)
}

// Softmax converts logits into a probability distribution. The max logit is subtracted first
// so large values do not overflow.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
