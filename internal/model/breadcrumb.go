package model

import "time"

// Breadcrumb is a trail entry recorded before an event happens, attached to
// subsequent captures for context.
type Breadcrumb struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type,omitempty"`
	Category  string                 `json:"category,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Level     Level                  `json:"level,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
