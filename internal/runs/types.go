package runs

// NormalizedRun is the stable JSON shape produced for one tracking run. Every
// field is always present and JSON-serializable; string fields that could not
// be resolved carry the "N/A" sentinel rather than null.
type NormalizedRun struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	State          string         `json:"state"`
	Progress       int            `json:"progress"`
	TotalSteps     int            `json:"totalSteps"`
	CreatedAt      string         `json:"createdAt"`
	ETA            string         `json:"eta"`
	Entity         string         `json:"entity"`
	Project        string         `json:"project"`
	GPU            string         `json:"gpu"`
	GPUUtilization string         `json:"gpuUtilization"`
	Metrics        map[string]any `json:"metrics"`
}
