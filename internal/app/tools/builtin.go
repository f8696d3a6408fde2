package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata"
)

// CurrentTime reports the wall clock in an optional IANA zone.
func CurrentTime(now func() time.Time) Tool {
	return Tool{
		Name:        "current_time",
		Description: "Returns the current date and time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA time zone such as Europe/Berlin. Defaults to UTC.",
				},
			},
		},
		Run: func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Timezone string `json:"timezone"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("arguments: %w", err)
			}
			loc := time.UTC
			if in.Timezone != "" {
				l, err := time.LoadLocation(in.Timezone)
				if err != nil {
					return nil, fmt.Errorf("timezone %q: %w", in.Timezone, err)
				}
				loc = l
			}
			return map[string]string{"time": now().In(loc).Format(time.RFC3339)}, nil
		},
	}
}
