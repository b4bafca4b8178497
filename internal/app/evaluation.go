package app

import (
	"fmt"
	"os"

	"glyphprep/internal/evaluation"
	"glyphprep/internal/pipeline"
)

// Evaluate scores the output of inv against the ground-truth page at
// truthPath. The ground truth must have the output's dimensions, so it is
// usually taken with upscaling off or prepared at the normalized resolution.
func (a *Application) Evaluate(inv *pipeline.Invocation, truthPath string) (*evaluation.Metrics, error) {
	if inv.Fallback != nil {
		return nil, fmt.Errorf("output was not preprocessed: %w", inv.Fallback)
	}

	data, err := os.ReadFile(truthPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth %s: %w", truthPath, err)
	}

	truth, _, err := a.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ground truth: %w", err)
	}

	result, _, err := a.codec.Decode(inv.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}

	metrics, err := evaluation.Compare(truth, result)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Evaluation", "binarization scored", map[string]interface{}{
		"ground_truth": truthPath,
		"f_measure":    metrics.FMeasure(),
		"psnr":         metrics.PSNR(),
		"nrm":          metrics.NRM(),
		"drd":          metrics.DRD(),
	})

	return metrics, nil
}
