package observe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/navimate/navimate/pkg/profile"
)

// Render serializes an Observation plus the user profile into the text block
// the decision step sees. Pure and deterministic: the same inputs always
// produce byte-identical output, and only populated profile fields appear.
func Render(obs *Observation, prof *profile.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current page: %s\n", obs.URL)
	fmt.Fprintf(&b, "Title: %s\n", obs.Title)

	if len(obs.Headings) > 0 {
		b.WriteString("\nPage headings:\n")
		for _, heading := range obs.Headings {
			fmt.Fprintf(&b, "- %s\n", heading)
		}
	}

	if block := renderProfileBlock(prof); block != "" {
		b.WriteString("\nAvailable user data (already known, do not ask the human for these):\n")
		b.WriteString(block)
	}

	if len(obs.Elements) > 0 {
		b.WriteString("\nInteractive elements (pass element_id to click/fill):\n")
		for _, element := range obs.Elements {
			// Struct field order keeps the JSON deterministic.
			line, err := json.Marshal(element)
			if err != nil {
				continue
			}
			b.Write(line)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// renderProfileBlock lists only the profile fields that are populated; unset
// fields must not leak into the prompt.
func renderProfileBlock(prof *profile.Profile) string {
	if prof == nil {
		return ""
	}
	var b strings.Builder
	if prof.Phone != "" {
		fmt.Fprintf(&b, "- phone: %s\n", prof.Phone)
	}
	if prof.Email != "" {
		fmt.Fprintf(&b, "- email: %s\n", prof.Email)
	}
	if address := prof.AddressLine(); address != "" {
		fmt.Fprintf(&b, "- delivery address: %s\n", address)
	}
	if prof.BudgetCeiling > 0 {
		fmt.Fprintf(&b, "- budget ceiling: %d\n", prof.BudgetCeiling)
	}
	return b.String()
}
