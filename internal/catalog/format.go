package catalog

import "fmt"

// FormatSize renders a byte count for scan and report output.
func FormatSize(numBytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(numBytes)
	for i, unit := range units {
		if value < 1024 || i == len(units)-1 {
			if unit == "B" {
				return fmt.Sprintf("%d %s", int64(value), unit)
			}
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}
