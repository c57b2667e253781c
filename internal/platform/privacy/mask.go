// Package privacy provides utilities for handling personally identifiable
// information before it reaches logs or audit records.
package privacy

import "strings"

// MaskGovernmentID masks a government identity number for logging and audit
// storage, keeping only the last four characters visible
// (e.g. "123456789012" -> "XXXXXXXX9012").
//
// Values shorter than four characters are fully masked. Empty strings return
// "unknown" so log fields stay populated.
func MaskGovernmentID(id string) string {
	if id == "" {
		return "unknown"
	}
	if len(id) <= 4 {
		return strings.Repeat("X", len(id))
	}
	return strings.Repeat("X", len(id)-4) + id[len(id)-4:]
}
