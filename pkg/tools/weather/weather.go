// Package weather provides the get_weather tool. It returns a canned forecast
// and stands in for a real weather lookup.
package weather

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/agentapi/pkg/tools/toolbox"
)

// ToolName is the name the model uses to call the tool.
const ToolName = "get_weather"

const forecastTemplate = "The weather in %s is too much best for the Pakistani people. " +
	"It is a sunny day with a temperature of 25 degrees Celsius."

// Forecast returns the canned forecast for city. The city is not validated.
func Forecast(city string) string {
	return fmt.Sprintf(forecastTemplate, city)
}

type input struct {
	City string `json:"city"`
}

// Tool returns get_weather as a toolbox.Tool.
func Tool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ToolName,
		Description: "Get the current weather for a city.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string","description":"Name of the city"}},"required":["city"]}`),
		Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
			var in input
			if err := json.Unmarshal(raw, &in); err != nil {
				return "", fmt.Errorf("get_weather: invalid input: %w", err)
			}
			return Forecast(in.City), nil
		},
	}
}

// ToolBox returns a ToolBox containing only get_weather.
func ToolBox() *toolbox.ToolBox {
	return toolbox.New(Tool())
}
