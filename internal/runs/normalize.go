package runs

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/runboard/runboard/pkg/wandbclient"
)

// totalStepKeys is the fixed precedence order for the total-step heuristic.
// Different training frameworks log the intended step budget under different
// keys; a falsy value under an earlier key falls through to the next one.
var totalStepKeys = []string{"steps", "total_steps", "num_train_epochs", "training_steps"}

// utilizationKeys is scanned in order against the summary snapshot; the first
// present, non-null key wins and stops the scan. Utilization is only ever read
// from the summary, never from the paginated history stream.
var utilizationKeys = []string{
	"gpu.0.gpu",
	"system.gpu.0.gpu",
	"gpu_utilization",
	"gpu_usage",
	"system.gpu.0.utilization",
}

const maxGPULabelLength = 25

// Normalize converts one platform-native run into its stable output shape.
func Normalize(run wandbclient.Run) NormalizedRun {
	totalSteps := ResolveTotalSteps(run.Config)
	gpu, utilization := ResolveGPU(run.Metadata, run.Summary)

	progress := 0
	if step, ok := asNumber(run.Summary["_step"]); ok {
		progress = int(step)
	}

	return NormalizedRun{
		ID:             run.ID,
		Name:           run.Name,
		State:          run.State,
		Progress:       progress,
		TotalSteps:     totalSteps,
		CreatedAt:      run.CreatedAt,
		ETA:            EstimateETA(run.State, run.Summary, totalSteps),
		Entity:         run.Entity,
		Project:        run.Project,
		GPU:            gpu,
		GPUUtilization: utilization,
		Metrics:        SanitizeMetrics(run.Summary),
	}
}

// SanitizeMetrics returns a copy of the summary mapping in which every value
// is guaranteed JSON-serializable. Values that cannot be marshalled (NaN and
// infinity floats being the usual case) are replaced with their string
// representation. No key is ever dropped, and running the sanitizer on its
// own output is a no-op.
func SanitizeMetrics(summary map[string]any) map[string]any {
	sanitized := make(map[string]any, len(summary))
	for key, value := range summary {
		if _, err := json.Marshal(value); err != nil {
			sanitized[key] = fmt.Sprintf("%v", value)
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

// ResolveTotalSteps derives a best-effort total-step count from the run's
// config mapping. Returns 0 when no key resolves; callers must treat 0 as
// "unknown", not "zero work".
func ResolveTotalSteps(config map[string]any) int {
	for _, key := range totalStepKeys {
		value, ok := asNumber(config[key])
		if ok && value != 0 {
			return int(value)
		}
	}
	return 0
}

// ResolveGPU extracts the device label and utilization percentage from the
// run's metadata and summary. Either output falls back to "N/A" rather than
// failing the run.
func ResolveGPU(metadata map[string]any, summary map[string]any) (string, string) {
	return resolveGPULabel(metadata), resolveGPUUtilization(summary)
}

func resolveGPULabel(metadata map[string]any) string {
	label := ""
	if value, ok := metadata["gpu"]; ok && gpuValuePresent(value) {
		label = fmt.Sprintf("%v", value)
	}
	if label == "" {
		if devices, ok := metadata["gpu_nvidia"].([]any); ok && len(devices) > 0 {
			label = "Unknown GPU"
			if device, ok := devices[0].(map[string]any); ok {
				if name, ok := device["name"].(string); ok && name != "" {
					label = name
				}
			}
		}
	}
	if label == "" {
		return "N/A"
	}

	label = strings.TrimSpace(strings.TrimPrefix(label, "NVIDIA "))
	if len(label) > maxGPULabelLength {
		label = label[:maxGPULabelLength-3] + "..."
	}
	return label
}

// gpuValuePresent mirrors truthiness on the metadata "gpu" field: nil,
// false, zero numbers and the empty string all fall through to the device
// list.
func gpuValuePresent(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		if number, ok := asNumber(value); ok {
			return number != 0
		}
		return true
	}
}

func resolveGPUUtilization(summary map[string]any) string {
	for _, key := range utilizationKeys {
		value, ok := summary[key]
		if !ok || value == nil {
			continue
		}
		number, ok := asNumber(value)
		if !ok {
			return "N/A"
		}
		if number <= 1.0 {
			number *= 100
		}
		return fmt.Sprintf("%.1f%%", number)
	}
	return "N/A"
}

// EstimateETA computes a human-readable remaining-time estimate for one run.
// Non-running states map to their capitalized label. Running runs with enough
// data get a linear extrapolation assuming constant throughput from run start;
// everything else yields the "Running" fallback.
func EstimateETA(state string, summary map[string]any, totalSteps int) string {
	if state != "running" {
		if state == "" {
			return "N/A"
		}
		return capitalize(state)
	}

	currentProgress := 0.0
	if step, ok := asNumber(summary["_step"]); ok {
		currentProgress = step
	}
	if totalSteps <= 0 || currentProgress <= 0 || currentProgress >= float64(totalSteps) {
		return "Running"
	}

	runtimeSeconds := 0.0
	if runtime, ok := asNumber(summary["_runtime"]); ok {
		runtimeSeconds = runtime
	}
	if runtimeSeconds <= 0 {
		return "Running"
	}

	progressRatio := currentProgress / float64(totalSteps)
	remaining := runtimeSeconds/progressRatio - runtimeSeconds
	if remaining <= 0 {
		return "Running"
	}

	remainingSeconds := int(remaining)
	hours := remainingSeconds / 3600
	minutes := (remainingSeconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// asNumber converts the numeric shapes that JSON decoding and test fixtures
// produce into a float64.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
