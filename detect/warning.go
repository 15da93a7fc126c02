// Package detect implements the data-quality detectors for field-survey
// layer snapshots and the runner that orchestrates them. Each detector is
// a pure, synchronous, read-only pass producing structured warnings; a
// failing detector degrades to whatever warnings it had already
// accumulated instead of aborting the run.
package detect

// WarningData is one structured finding. FilterExpression, evaluated
// against LayerName, selects the features responsible for the warning;
// it is the mechanism a downstream UI uses to show them.
type WarningData struct {
	Message           string `json:"message"`
	RecordingAreaName string `json:"recording_area_name"`
	LayerName         string `json:"layer_name"`
	FilterExpression  string `json:"filter_expression"`

	// Set for warnings spanning two layers.
	SecondLayerName        string `json:"second_layer_name,omitempty"`
	SecondFilterExpression string `json:"second_filter_expression,omitempty"`

	// Detector-specific payloads, kept for downstream use.
	ObjectNumber       any                 `json:"object_number,omitempty"`
	SkippedNumbers     []int               `json:"skipped_numbers,omitempty"`
	DistanceIssues     []DistanceIssue     `json:"distance_issues,omitempty"`
	HeightIssues       []HeightIssue       `json:"height_issues,omitempty"`
	OutOfBoundsIssues  []OutOfBoundsIssue  `json:"out_of_bounds_issues,omitempty"`
	MissingPointIssues []MissingPointIssue `json:"missing_point_issues,omitempty"`
}

// DistanceIssue is one point/object pair separated farther than allowed.
type DistanceIssue struct {
	PointID       int64   `json:"point_id"`
	ObjectID      int64   `json:"object_id"`
	PointLabel    string  `json:"point_label"`
	ObjectLabel   string  `json:"object_label"`
	Distance      float64 `json:"distance"`
	RelationValue string  `json:"relation_value"`
}

// HeightIssue is one pair of nearby points with inconsistent elevations.
type HeightIssue struct {
	Feature1ID       int64   `json:"feature1_id"`
	Feature2ID       int64   `json:"feature2_id"`
	Label1           string  `json:"label1"`
	Label2           string  `json:"label2"`
	Distance         float64 `json:"distance"`
	HeightDifference float64 `json:"height_difference"`
	Z1               float64 `json:"z1"`
	Z2               float64 `json:"z2"`
}

// OutOfBoundsIssue is one entity feature lying outside its recording area.
type OutOfBoundsIssue struct {
	FeatureID         int64   `json:"feature_id"`
	Label             string  `json:"label"`
	RecordingAreaName string  `json:"recording_area_name"`
	RecordingAreaID   string  `json:"recording_area_id"`
	Distance          float64 `json:"distance"`
}

// MissingPointIssue is one object without a matching total station point.
type MissingPointIssue struct {
	ObjectID      int64  `json:"object_id"`
	ObjectLabel   string `json:"object_label"`
	RelationValue string `json:"relation_value"`
}
