package mcp

import (
	"context"
	"fmt"
	"strconv"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/render"
	"github.com/ashita-ai/moltbot/internal/service/uistore"
)

func (s *Server) registerUITools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("get_weather_card",
			mcplib.WithDescription("Render a weather card for a city."),
			mcplib.WithString("city", mcplib.Description("City name"), mcplib.Required()),
			mcplib.WithNumber("temperature", mcplib.Description("Temperature in Celsius"), mcplib.Required()),
			mcplib.WithString("condition",
				mcplib.Description("Sky condition, e.g. sunny, cloudy, rainy, snowy, stormy"),
				mcplib.Required(),
			),
			mcplib.WithNumber("humidity", mcplib.Description("Relative humidity percentage"), mcplib.Min(0), mcplib.Max(100)),
		),
		s.handleWeatherCard,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("render_data_table",
			mcplib.WithDescription("Render a titled table from headers and rows."),
			mcplib.WithString("title", mcplib.Description("Table title"), mcplib.Required()),
			mcplib.WithArray("headers", mcplib.Description("Column headers"), mcplib.WithStringItems(), mcplib.Required()),
			mcplib.WithArray("rows",
				mcplib.Description("Rows of cell values"),
				mcplib.Items(map[string]any{"type": "array"}),
				mcplib.Required(),
			),
		),
		s.handleDataTable,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("render_progress_card",
			mcplib.WithDescription("Render a progress bar card."),
			mcplib.WithString("title", mcplib.Description("What is progressing"), mcplib.Required()),
			mcplib.WithNumber("progress", mcplib.Description("Percent complete"), mcplib.Min(0), mcplib.Max(100), mcplib.Required()),
			mcplib.WithString("status", mcplib.Description("Status label, e.g. pending, in_progress, completed, failed"), mcplib.Required()),
			mcplib.WithString("message", mcplib.Description("Optional detail line")),
		),
		s.handleProgressCard,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("render_alert",
			mcplib.WithDescription("Render an alert banner."),
			mcplib.WithString("type", mcplib.Description("Alert severity"), mcplib.Enum(render.AlertTypes...), mcplib.Required()),
			mcplib.WithString("title", mcplib.Description("Alert headline"), mcplib.Required()),
			mcplib.WithString("message", mcplib.Description("Alert body"), mcplib.Required()),
			mcplib.WithBoolean("dismissible", mcplib.Description("Show a close button"), mcplib.DefaultBool(false)),
		),
		s.handleAlert,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("render_stats",
			mcplib.WithDescription("Render a grid of metric tiles."),
			mcplib.WithArray("stats",
				mcplib.Description("Metric tiles"),
				mcplib.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":      map[string]any{"type": "string"},
						"value":      map[string]any{"type": "string"},
						"change":     map[string]any{"type": "string"},
						"changeType": map[string]any{"type": "string", "enum": []string{"positive", "negative", "neutral"}},
					},
					"required": []string{"label", "value"},
				}),
				mcplib.Required(),
			),
		),
		s.handleStats,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("render_user_card",
			mcplib.WithDescription("Render a user profile card."),
			mcplib.WithString("name", mcplib.Description("Display name"), mcplib.Required()),
			mcplib.WithString("role", mcplib.Description("Role or title"), mcplib.Required()),
			mcplib.WithString("avatar_emoji", mcplib.Description("Emoji shown as the avatar")),
			mcplib.WithString("bio", mcplib.Description("Short biography")),
			mcplib.WithObject("stats", mcplib.Description("Named counters, e.g. {\"posts\": 12}")),
		),
		s.handleUserCard,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("list_ui_resources",
			mcplib.WithDescription("List every rendered UI resource with its URI and name."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleListUIResources,
	)
}

// publishUI stores html under a fresh URI and registers it as an MCP
// resource.
func (s *Server) publishUI(kind, title, html string) model.UIResource {
	res := s.ui.Put(uistore.NewURI(kind, title), html)
	s.mcpServer.AddResource(
		mcplib.NewResource(res.URI, res.Name(),
			mcplib.WithResourceDescription(kind+" UI component"),
			mcplib.WithMIMEType(res.MIMEType),
		),
		s.handleUIResource,
	)
	return res
}

// uiResult pairs a text summary with the resource embedded inline, so the
// client can render it without a resources/read round trip.
func uiResult(res model.UIResource, summary string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: summary},
			mcplib.NewEmbeddedResource(mcplib.BlobResourceContents{
				URI:      res.URI,
				MIMEType: res.MIMEType,
				Blob:     res.Blob,
			}),
		},
	}
}

func (s *Server) renderResult(kind, title string, html string, err error) *mcplib.CallToolResult {
	if err != nil {
		return errorResult(err.Error())
	}
	res := s.publishUI(kind, title, html)
	return uiResult(res, fmt.Sprintf("Rendered %s: %s", kind, res.URI))
}

func (s *Server) handleWeatherCard(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	city := request.GetString("city", "")
	condition := request.GetString("condition", "")
	if city == "" || condition == "" {
		return errorResult("city and condition are required"), nil
	}
	temperature, err := request.RequireFloat("temperature")
	if err != nil {
		return errorResult(err.Error()), nil
	}

	w := render.Weather{City: city, Temperature: temperature, Condition: condition}
	if _, ok := request.GetArguments()["humidity"]; ok {
		h := request.GetFloat("humidity", 0)
		w.Humidity = &h
	}
	html, err := render.WeatherCard(w)
	return s.renderResult("weather", city, html, err), nil
}

func (s *Server) handleDataTable(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	title := request.GetString("title", "")
	if title == "" {
		return errorResult("title is required"), nil
	}
	headers, err := request.RequireStringSlice("headers")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	rawRows, ok := request.GetArguments()["rows"].([]any)
	if !ok {
		return errorResult("rows must be an array of arrays"), nil
	}

	rows := make([][]string, 0, len(rawRows))
	for i, raw := range rawRows {
		cells, ok := raw.([]any)
		if !ok {
			return errorResult(fmt.Sprintf("rows[%d] must be an array", i)), nil
		}
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = cellString(c)
		}
		rows = append(rows, row)
	}

	html, err := render.DataTable(render.Table{Title: title, Headers: headers, Rows: rows})
	return s.renderResult("table", title, html, err), nil
}

func (s *Server) handleProgressCard(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	title := request.GetString("title", "")
	status := request.GetString("status", "")
	if title == "" || status == "" {
		return errorResult("title and status are required"), nil
	}
	progress, err := request.RequireFloat("progress")
	if err != nil {
		return errorResult(err.Error()), nil
	}

	html, err := render.ProgressCard(render.Progress{
		Title:   title,
		Percent: progress,
		Status:  status,
		Message: request.GetString("message", ""),
	})
	return s.renderResult("progress", title, html, err), nil
}

func (s *Server) handleAlert(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	n := render.Notice{
		Type:        request.GetString("type", render.AlertInfo),
		Title:       request.GetString("title", ""),
		Message:     request.GetString("message", ""),
		Dismissible: request.GetBool("dismissible", false),
	}
	if n.Title == "" || n.Message == "" {
		return errorResult("title and message are required"), nil
	}
	html, err := render.Alert(n)
	return s.renderResult("alert", n.Title, html, err), nil
}

func (s *Server) handleStats(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	raw, ok := request.GetArguments()["stats"].([]any)
	if !ok || len(raw) == 0 {
		return errorResult("stats must be a non-empty array"), nil
	}

	stats := make([]render.Stat, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return errorResult(fmt.Sprintf("stats[%d] must be an object", i)), nil
		}
		stats = append(stats, render.Stat{
			Label:      cellString(obj["label"]),
			Value:      cellString(obj["value"]),
			Change:     cellString(obj["change"]),
			ChangeType: cellString(obj["changeType"]),
		})
	}

	html, err := render.Stats(stats)
	return s.renderResult("stats", stats[0].Label, html, err), nil
}

func (s *Server) handleUserCard(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	u := render.User{
		Name:        request.GetString("name", ""),
		Role:        request.GetString("role", ""),
		AvatarEmoji: request.GetString("avatar_emoji", ""),
		Bio:         request.GetString("bio", ""),
	}
	if u.Name == "" || u.Role == "" {
		return errorResult("name and role are required"), nil
	}
	if obj, ok := request.GetArguments()["stats"].(map[string]any); ok {
		u.Stats = make(map[string]string, len(obj))
		for k, v := range obj {
			u.Stats[k] = cellString(v)
		}
	}

	html, err := render.UserCard(u)
	return s.renderResult("user", u.Name, html, err), nil
}

func (s *Server) handleListUIResources(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	resources := s.ui.List()
	out := make([]map[string]string, len(resources))
	for i, r := range resources {
		out[i] = map[string]string{
			"uri":      r.URI,
			"name":     r.Name(),
			"mimeType": r.MIMEType,
		}
	}
	return jsonResult(map[string]any{
		"resources": out,
		"total":     len(out),
	}), nil
}

// cellString renders a JSON scalar for display. Numbers use the shortest
// exact form; nil is empty.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	}
	return fmt.Sprint(v)
}
