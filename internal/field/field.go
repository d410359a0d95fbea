// Package field provides the field layout dimensions the calibrator measures
// against. All distances are in millimeters, expressed in field coordinates
// with x pointing at the opponent goal.
package field

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dimensions describes the part of the field layout relevant for
// calibration: the opponent ground line, the front goal area line and the
// penalty mark, all on the field's x axis, plus the painted line width.
type Dimensions struct {
	XGroundLine  float64 `json:"x_ground_line"`  // Opponent ground line
	XGoalArea    float64 `json:"x_goal_area"`    // Front goal area line
	XPenaltyMark float64 `json:"x_penalty_mark"` // Penalty mark center
	LineWidth    float64 `json:"line_width"`     // Painted line width
}

// Default returns the standard field dimensions.
func Default() Dimensions {
	return Dimensions{
		XGroundLine:  4500,
		XGoalArea:    3900,
		XPenaltyMark: 3200,
		LineWidth:    50,
	}
}

// GoalAreaWidth returns the gap between the ground line and the front goal
// area line.
func (d Dimensions) GoalAreaWidth() float64 {
	return d.XGroundLine - d.XGoalArea
}

// GoalAreaToMark returns the distance from the front goal area line to the
// penalty mark.
func (d Dimensions) GoalAreaToMark() float64 {
	return d.XGoalArea - d.XPenaltyMark
}

// GroundLineToMark returns the distance from the ground line to the penalty
// mark.
func (d Dimensions) GroundLineToMark() float64 {
	return d.XGroundLine - d.XPenaltyMark
}

// Validate checks the dimensions for internal consistency.
func (d Dimensions) Validate() error {
	if d.LineWidth <= 0 {
		return fmt.Errorf("line width must be positive")
	}
	if d.XGroundLine <= d.XGoalArea {
		return fmt.Errorf("ground line must be beyond the goal area line")
	}
	if d.XGoalArea <= d.XPenaltyMark {
		return fmt.Errorf("goal area line must be beyond the penalty mark")
	}
	return nil
}

// SaveToFile saves the dimensions to a JSON file.
func (d Dimensions) SaveToFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads dimensions from a JSON file.
func LoadFromFile(path string) (Dimensions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dimensions{}, err
	}

	var d Dimensions
	if err := json.Unmarshal(data, &d); err != nil {
		return Dimensions{}, err
	}

	if err := d.Validate(); err != nil {
		return Dimensions{}, fmt.Errorf("invalid field dimensions: %w", err)
	}

	return d, nil
}
