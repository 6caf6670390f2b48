// Package cli runs the selection flow non-interactively and prints the result.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/studiowebux/discobrowse/internal/analytics"
	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/filter"
	"github.com/studiowebux/discobrowse/internal/selection"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
	"gopkg.in/yaml.v3"
)

// Options contains options shared by the CLI commands
type Options struct {
	ServerURL    string
	Timeout      time.Duration
	OutputFormat string // json, yaml, text
	Filter       string // JMESPath filter expression
	Query        string // JMESPath query expression
	Recorder     selection.Recorder
	Logger       *slog.Logger
	Out          io.Writer // Defaults to stdout
	Err          io.Writer // Defaults to stderr
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.OutputFormat == "" {
		o.OutputFormat = "text"
	}
}

// writerNotifier prints notifications as lines on a writer
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Notify(message string) {
	fmt.Fprintln(n.w, message)
}

// isInteractive checks if stdin is a terminal (not piped)
func isInteractive() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

type session struct {
	client  *client.Client
	store   *state.Store
	handler *selection.Handler
}

func newSession(opts Options) (*session, error) {
	c, err := client.New(opts.ServerURL, client.Options{Timeout: opts.Timeout, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	store := state.NewStore()
	handler := selection.NewHandler(c, store, writerNotifier{w: opts.Err}, selection.Options{
		Recorder: opts.Recorder,
		Logger:   opts.Logger,
	})
	return &session{client: c, store: store, handler: handler}, nil
}

// ShowAPI selects apiID and prints the resulting API descriptor
func ShowAPI(ctx context.Context, apiID string, opts Options) error {
	opts.defaults()
	s, err := newSession(opts)
	if err != nil {
		return err
	}

	if err := s.handler.OnAPISelected(ctx, apiID); err != nil {
		return err
	}
	return writeOutput(opts, s.store.API())
}

// ShowEndpoint selects endpointName and prints the resulting endpoint
// descriptor. When apiID is set the API is selected first, which scopes bare
// method names to it. An empty endpointName opens a picker on a terminal.
func ShowEndpoint(ctx context.Context, endpointName, apiID string, opts Options) error {
	opts.defaults()
	s, err := newSession(opts)
	if err != nil {
		return err
	}

	if apiID != "" {
		if err := s.handler.OnAPISelected(ctx, apiID); err != nil {
			return err
		}
	}

	if endpointName == "" {
		if apiID == "" || !isInteractive() {
			return fmt.Errorf("endpoint name is required")
		}
		endpoints, err := s.client.ListEndpoints(ctx, apiID)
		if err != nil {
			return err
		}
		endpointName, err = promptForEndpoint(apiID, endpoints)
		if err != nil {
			return err
		}
	}

	if endpointName == types.PlaceholderLabel {
		return fmt.Errorf("%q is not an endpoint", endpointName)
	}
	if err := s.handler.OnEndpointSelected(ctx, endpointName); err != nil {
		return err
	}
	return writeOutput(opts, s.store.Endpoint())
}

// List prints the API summaries, or the endpoints of apiID when set.
// match narrows the rows with a fuzzy pattern.
func List(ctx context.Context, apiID, match string, opts Options) error {
	opts.defaults()
	c, err := client.New(opts.ServerURL, client.Options{Timeout: opts.Timeout, Logger: opts.Logger})
	if err != nil {
		return err
	}

	if apiID == "" {
		apis, err := c.ListAPIs(ctx)
		if err != nil {
			return err
		}
		return writeOutput(opts, filter.MatchAPIs(apis, match))
	}

	endpoints, err := c.ListEndpoints(ctx, apiID)
	if err != nil {
		return err
	}
	return writeOutput(opts, filter.MatchEndpoints(endpoints, match))
}

// StatsSource aggregates recorded selections
type StatsSource interface {
	PerAPI(ctx context.Context) ([]analytics.Stats, error)
	PerEndpoint(ctx context.Context, apiID string) ([]analytics.Stats, error)
}

// Stats prints selection statistics per API, or per endpoint of apiID
func Stats(ctx context.Context, src StatsSource, apiID string, opts Options) error {
	opts.defaults()

	var stats []analytics.Stats
	var err error
	if apiID == "" {
		stats, err = src.PerAPI(ctx)
	} else {
		stats, err = src.PerEndpoint(ctx, apiID)
	}
	if err != nil {
		return err
	}
	if stats == nil {
		stats = []analytics.Stats{}
	}
	return writeOutput(opts, stats)
}

func writeOutput(opts Options, v any) error {
	output, err := formatOutput(v, opts)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	_, err = io.WriteString(opts.Out, output)
	return err
}

// formatOutput formats v based on the output format. Filter and query
// results are printed as JSON, or YAML when requested.
func formatOutput(v any, opts Options) (string, error) {
	if opts.Filter != "" || opts.Query != "" {
		result, err := filter.ApplyValue(v, opts.Filter, opts.Query)
		if err != nil {
			return "", err
		}
		if opts.OutputFormat != "yaml" {
			return result, nil
		}
		var generic any
		if err := json.Unmarshal([]byte(result), &generic); err != nil {
			return "", err
		}
		data, err := yaml.Marshal(generic)
		return string(data), err
	}

	switch opts.OutputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "text":
		return formatText(v), nil

	default:
		return "", fmt.Errorf("unsupported output format %q (use json, yaml or text)", opts.OutputFormat)
	}
}

var labelStyle = lipgloss.NewStyle().Bold(true)

func formatText(v any) string {
	var sb strings.Builder

	switch v := v.(type) {
	case types.APIDescriptor:
		api := v.API
		sb.WriteString(labelStyle.Render(api.DisplayName()) + "\n")
		writeField(&sb, "Name", api.Name)
		writeField(&sb, "Title", api.Title)
		writeField(&sb, "Description", api.Description)
		writeField(&sb, "Discovery version", api.DiscoveryVersion)
		writeField(&sb, "Version", api.Version)
		writeField(&sb, "Documentation", api.DocumentationLink)
		writeField(&sb, "Icon 16", api.Icons.X16)
		writeField(&sb, "Icon 32", api.Icons.X32)

	case types.EndpointDescriptor:
		title := v.Name
		if v.HTTPMethod != "" || v.Path != "" {
			title = strings.TrimSpace(fmt.Sprintf("%s (%s %s)", v.Name, v.HTTPMethod, v.Path))
		}
		sb.WriteString(labelStyle.Render(title) + "\n")
		writeField(&sb, "Description", v.Description)
		writeField(&sb, "Base URL", v.BaseURL)
		if len(v.Parameters) > 0 {
			sb.WriteString("  Parameters:\n")
			sb.WriteString(ParameterTable(v.OrderedParameters()) + "\n")
		}
		scopes := "none"
		if len(v.Scopes) > 0 {
			scopes = strings.Join(v.Scopes, ", ")
		}
		writeField(&sb, "Scopes", scopes)

	case []types.APISummary:
		t := table.New().Border(lipgloss.HiddenBorder()).Headers("ID", "NAME", "VERSION")
		for _, api := range v {
			t.Row(api.ID, api.Name, api.Version)
		}
		sb.WriteString(t.String())

	case []types.EndpointSummary:
		t := table.New().Border(lipgloss.HiddenBorder()).Headers("NAME", "METHOD", "ID")
		for _, ep := range v {
			t.Row(ep.Name, ep.HTTPMethod, ep.ID)
		}
		sb.WriteString(t.String())

	case []analytics.Stats:
		t := table.New().Border(lipgloss.HiddenBorder()).Headers("API", "ENDPOINT", "CALLS", "OK", "ERRORS", "AVG", "LAST")
		for _, st := range v {
			t.Row(
				st.APIID,
				st.EndpointName,
				strconv.Itoa(st.TotalCalls),
				fmt.Sprintf("%.0f%%", st.SuccessRate()*100),
				strconv.Itoa(st.ErrorCount+st.NetworkErrors),
				fmt.Sprintf("%.0fms", st.AvgDurationMs),
				st.LastSelected.Format("2006-01-02 15:04"),
			)
		}
		sb.WriteString(t.String())

	default:
		fmt.Fprintf(&sb, "%v", v)
	}

	return sb.String()
}

// ParameterTable renders parameters as a bordered table, required ones marked with *
func ParameterTable(params []types.Parameter) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "TYPE", "LOCATION", "REQUIRED", "DESCRIPTION")
	for _, p := range params {
		required := ""
		if p.Required {
			required = "*"
		}
		t.Row(p.Name, p.Type, p.Location, required, p.Description)
	}
	return t.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "  %s: %s\n", label, value)
}
