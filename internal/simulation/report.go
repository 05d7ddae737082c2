package simulation

import "fmt"

// FormatReport returns the log burst lines for r. The last line is empty
// and separates consecutive bursts.
func FormatReport(version string, r *Report) []string {
	lines := make([]string, 0, 8)
	lines = append(lines, "Version=sw"+version)
	if r.NewScenario {
		lines = append(lines, "DUT_synchro")
	}
	lines = append(lines,
		fmt.Sprintf("Wind_speed=%dkm/h", r.Setpoint.SpeedKmh),
		fmt.Sprintf("Wind_speed_peak=%dkm/h", r.PeakSpeed),
		fmt.Sprintf("Wind_direction=%dd", r.Setpoint.DirectionDegrees),
		fmt.Sprintf("Rainfall=%dmm", r.Setpoint.RainfallMM),
		fmt.Sprintf("Rainfall_peak=%dmm", r.PeakRainfall),
		"",
	)
	return lines
}
