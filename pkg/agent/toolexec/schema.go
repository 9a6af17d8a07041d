package toolexec

import "github.com/navimate/navimate/pkg/llm"

// Definitions returns the fixed browser-action schema declared to the
// completion service. Names and required fields here are the contract the
// executor validates against.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolOpenURL,
			Description: "Navigate the page to an absolute URL.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Absolute http(s) URL to open",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        ToolClick,
			Description: "Click an interactive element by its element_id from the latest page observation.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "element_id of the element to click",
					},
				},
				"required": []string{"index"},
			},
		},
		{
			Name:        ToolFill,
			Description: "Type text into a form field, addressed by its position among the page's input/textarea elements.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Zero-based position of the field among the page's input and textarea elements",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to fill in",
					},
					"press_enter": map[string]interface{}{
						"type":        "boolean",
						"description": "Press Enter after filling to submit",
					},
				},
				"required": []string{"index", "text"},
			},
		},
		{
			Name:        ToolPress,
			Description: "Dispatch a single named key event to the focused element (e.g. Enter, Escape, Tab).",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Key name to press",
					},
				},
				"required": []string{"key"},
			},
		},
		{
			Name:        ToolScroll,
			Description: "Scroll the page by a wheel-style delta in CSS pixels.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dx": map[string]interface{}{
						"type":        "number",
						"description": "Horizontal delta, defaults to 0",
					},
					"dy": map[string]interface{}{
						"type":        "number",
						"description": "Vertical delta; positive scrolls down",
					},
				},
				"required": []string{"dy"},
			},
		},
		{
			Name:        ToolWaitForNavigation,
			Description: "Wait for the page's load milestone. A timeout is a normal outcome, not an error.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum wait in milliseconds (default 10000)",
					},
				},
			},
		},
		{
			Name:        ToolGoBack,
			Description: "Navigate one entry back in browser history.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
