// Package render turns tool arguments into self-contained HTML snippets.
//
// Every renderer is deterministic: the same input always yields the same
// markup. All text is escaped by html/template.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"changeColor": changeColor,
}).ParseFS(templateFS, "templates/*.html"))

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: %s: %w", name, err)
	}
	return buf.String(), nil
}

// Weather is the input of WeatherCard. Humidity is optional.
type Weather struct {
	City        string
	Temperature float64
	Condition   string
	Humidity    *float64
}

var weatherIcons = map[string]string{
	"sunny":  "☀️",
	"clear":  "☀️",
	"cloudy": "☁️",
	"rainy":  "🌧️",
	"rain":   "🌧️",
	"snowy":  "❄️",
	"snow":   "❄️",
	"stormy": "⛈️",
	"windy":  "💨",
	"foggy":  "🌫️",
}

// WeatherCard renders a current-conditions card.
func WeatherCard(w Weather) (string, error) {
	icon, ok := weatherIcons[strings.ToLower(w.Condition)]
	if !ok {
		icon = "🌤️"
	}
	var humidity string
	if w.Humidity != nil {
		humidity = strconv.FormatFloat(*w.Humidity, 'f', -1, 64)
	}
	return execute("weather", struct {
		City, Condition, Icon string
		Temperature           string
		Humidity              string
	}{w.City, w.Condition, icon, strconv.FormatFloat(w.Temperature, 'f', -1, 64), humidity})
}

// Table is the input of DataTable. Short rows are rendered as-is.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// DataTable renders a titled table.
func DataTable(t Table) (string, error) {
	return execute("table", t)
}

// Progress is the input of ProgressCard. Percent is clamped to 0..100.
type Progress struct {
	Title   string
	Percent float64
	Status  string
	Message string
}

// ProgressCard renders a labelled progress bar.
func ProgressCard(p Progress) (string, error) {
	color := "#0070f3"
	switch p.Status {
	case "completed", "success", "done":
		color = "#2e7d32"
	case "failed", "error":
		color = "#c62828"
	case "pending", "paused":
		color = "#9e9e9e"
	}
	return execute("progress", struct {
		Title       string
		Percent     float64
		Message     string
		StatusLabel string
		Color       string
	}{
		Title:       p.Title,
		Percent:     math.Round(math.Max(0, math.Min(100, p.Percent))),
		Message:     p.Message,
		StatusLabel: strings.ReplaceAll(p.Status, "_", " "),
		Color:       color,
	})
}

// Alert types.
const (
	AlertInfo    = "info"
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertError   = "error"
)

// AlertTypes lists the accepted alert types.
var AlertTypes = []string{AlertInfo, AlertSuccess, AlertWarning, AlertError}

// Notice is the input of Alert.
type Notice struct {
	Type        string
	Title       string
	Message     string
	Dismissible bool
}

type alertStyle struct{ icon, color, background string }

var alertStyles = map[string]alertStyle{
	AlertInfo:    {"ℹ️", "#0288d1", "#e1f5fe"},
	AlertSuccess: {"✅", "#2e7d32", "#e8f5e9"},
	AlertWarning: {"⚠️", "#ef6c00", "#fff3e0"},
	AlertError:   {"❌", "#c62828", "#ffebee"},
}

// Alert renders a coloured notice. Unknown types render as info.
func Alert(n Notice) (string, error) {
	style, ok := alertStyles[n.Type]
	if !ok {
		n.Type = AlertInfo
		style = alertStyles[AlertInfo]
	}
	return execute("alert", struct {
		Notice
		Icon       string
		Color      string
		Background string
	}{n, style.icon, style.color, style.background})
}

// Stat is one tile of Stats.
type Stat struct {
	Label      string
	Value      string
	Change     string
	ChangeType string // positive, negative or neutral
}

// Stats renders a grid of metric tiles.
func Stats(stats []Stat) (string, error) {
	return execute("stats", stats)
}

func changeColor(changeType string) string {
	switch changeType {
	case "positive":
		return "#2e7d32"
	case "negative":
		return "#c62828"
	}
	return "#666666"
}

// User is the input of UserCard. Stats keys are rendered in sorted order.
type User struct {
	Name        string
	Role        string
	AvatarEmoji string
	Bio         string
	Stats       map[string]string
}

// UserCard renders a profile card.
func UserCard(u User) (string, error) {
	avatar := u.AvatarEmoji
	if avatar == "" {
		avatar = "👤"
	}
	keys := make([]string, 0, len(u.Stats))
	for k := range u.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type stat struct{ Label, Value string }
	stats := make([]stat, 0, len(keys))
	for _, k := range keys {
		stats = append(stats, stat{k, u.Stats[k]})
	}
	return execute("user", struct {
		Name, Role, AvatarEmoji, Bio string
		Stats                        []stat
	}{u.Name, u.Role, avatar, u.Bio, stats})
}

// Dashboard renders orchestrator stats and the recent-task table.
func Dashboard(s model.Stats) (string, error) {
	return execute("dashboard", s)
}

// Conversation renders the merged message log of the given tasks, in the
// order given, each task's messages in log order.
func Conversation(id string, tasks []model.Task) (string, error) {
	type entry struct {
		Time, From, To, Content string
	}
	var entries []entry
	for _, t := range tasks {
		for _, m := range t.Messages {
			entries = append(entries, entry{
				Time:    m.Timestamp.UTC().Format(time.TimeOnly),
				From:    m.From,
				To:      m.To,
				Content: m.Content,
			})
		}
	}
	return execute("conversation", struct {
		ID      string
		Entries []entry
	}{id, entries})
}
