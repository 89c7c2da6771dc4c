package domain

import "time"

// SynthesisResult is the output of the single generative call of a run.
type SynthesisResult struct {
	Period            RunWindow
	GeneratedAt       time.Time
	ModelIdentifier   string
	BodyText          string
	ItemCountEstimate int
}

// ReportArtifacts points at the rendered outputs handed to delivery.
type ReportArtifacts struct {
	DocumentPath string
	MessagePath  string
	Synthesis    SynthesisResult
}
