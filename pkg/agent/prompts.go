package agent

import (
	"fmt"
	"strings"

	"github.com/navimate/navimate/pkg/profile"
)

// systemPrompt is the instruction block seeded at the start of every run.
const systemPrompt = `You are a browser automation agent. You control a single browser page and work toward the user's goal one action at a time.

After every action you receive a fresh observation of the page: its URL, title, headings, and a numbered list of interactive elements. Element ids are only valid for the observation they appear in; after the page changes, wait for the next observation before clicking.

Rules:
- Use the provided tools to act. Reply in plain text only when you have finished the goal or are genuinely blocked.
- Prefer small, verifiable steps: navigate, observe, then interact.
- Never invent element ids. If the element you need is not listed, scroll or navigate to find it.
- The "available user data" block lists data you already have. Never ask the human for anything listed there.
- When you need data you do not have (logins, payment data, one-time codes) or a confirmation for a critical step such as placing an order, call needs_human instead of guessing.`

// buildSystemPrompt appends the static profile preferences to the
// instruction block. Contact and address data is delivered per observation;
// this covers only the run-stable preferences.
func buildSystemPrompt(prof *profile.Profile) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	var prefs []string
	if prof != nil {
		if prof.Name != "" {
			prefs = append(prefs, fmt.Sprintf("The user's name is %s.", prof.Name))
		}
		if line := prof.PreferencesLine(); line != "" {
			prefs = append(prefs, fmt.Sprintf("Food preferences: %s.", line))
		}
		if len(prof.Allergies) > 0 {
			prefs = append(prefs, fmt.Sprintf("Allergies (never order these): %s.", strings.Join(prof.Allergies, ", ")))
		}
		if prof.PaymentMethod != "" {
			prefs = append(prefs, fmt.Sprintf("Preferred payment method: %s.", prof.PaymentMethod))
		}
	}
	if len(prefs) > 0 {
		b.WriteString("\n\nUser preferences:\n")
		for _, pref := range prefs {
			b.WriteString("- ")
			b.WriteString(pref)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
