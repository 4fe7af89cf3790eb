package util

// JobStage identifies how far an async analysis job has progressed.
type JobStage string

const (
	JobStageQueued      JobStage = "queued"
	JobStageDownloading JobStage = "downloading"
	JobStageExtracting  JobStage = "extracting"
	JobStageAnalyzing   JobStage = "analyzing"
	JobStageStoring     JobStage = "storing"
	JobStageCompleted   JobStage = "completed"
	JobStageFailed      JobStage = "failed"
)

type JobProgress struct {
	Stage             JobStage `json:"stage"`
	Percentage        *int32   `json:"percentage,omitempty"`
	EstimatedDuration *int64   `json:"estimated_duration,omitempty"`
	TimeRemaining     *int64   `json:"time_remaining,omitempty"`
}

var stagePercentage = map[JobStage]int32{
	JobStageQueued:      0,
	JobStageDownloading: 10,
	JobStageExtracting:  30,
	JobStageAnalyzing:   60,
	JobStageStoring:     90,
	JobStageCompleted:   100,
}

// ValidJobStage reports whether s is one of the known job stages.
func ValidJobStage(s JobStage) bool {
	switch s {
	case JobStageQueued, JobStageDownloading, JobStageExtracting,
		JobStageAnalyzing, JobStageStoring, JobStageCompleted, JobStageFailed:
		return true
	}
	return false
}

// JobStagePercentage maps a stage to its progress percentage.
// Failed jobs report the percentage of the last stage they reached,
// which callers track separately, so it maps to 0 here.
func JobStagePercentage(stage JobStage) int32 {
	return stagePercentage[stage]
}

// BuildJobProgress assembles the progress payload for a job status response.
// estimatedMs is the predicted total duration in milliseconds (0 if unknown)
// and elapsedMs is how long the job has been running.
func BuildJobProgress(stage JobStage, estimatedMs int64, elapsedMs int64) JobProgress {
	progress := JobProgress{Stage: stage}

	pct := JobStagePercentage(stage)
	progress.Percentage = &pct

	if estimatedMs > 0 {
		progress.EstimatedDuration = &estimatedMs
		remaining := estimatedMs - elapsedMs
		if remaining < 0 {
			remaining = 0
		}
		if stage != JobStageCompleted && stage != JobStageFailed {
			progress.TimeRemaining = &remaining
		}
	}

	return progress
}
