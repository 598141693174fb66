// Package template renders the review sheet shown before a listing is
// submitted.
package template

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"charm.land/glamour/v2"
	"github.com/aymanbagabas/go-udiff"
	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/validate"
)

// Variables holds the data injected into template placeholders.
type Variables struct {
	Title        string // Listing title, or a placeholder when empty
	PropertyType string // Property type
	RentMode     string // Rent mode
	Flow         string // Authoring flow
	Location     string // One-line address
	Pricing      string // Formatted price terms
	PhotoCount   string // Number of photos
	Photos       string // Photo list in submission order
	Amenities    string // Comma separated amenities
	Description  string // Description body
	Changes      string // Unified diff of edited text (edit mode only)
	Issues       string // Outstanding validation failures
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supports the following variables:
// - {{title}}, {{property_type}}, {{rent_mode}}, {{flow}}
// - {{location}}, {{pricing}}, {{amenities}}, {{description}}
// - {{photo_count}}, {{photos}}
// - {{changes}} - diff against the hydrated record (empty if unchanged)
// - {{issues}} - what still blocks submission (empty if none)
func Render(template string, vars Variables) string {
	replacements := map[string]string{
		"{{title}}":         vars.Title,
		"{{property_type}}": vars.PropertyType,
		"{{rent_mode}}":     vars.RentMode,
		"{{flow}}":          vars.Flow,
		"{{location}}":      vars.Location,
		"{{pricing}}":       vars.Pricing,
		"{{photo_count}}":   vars.PhotoCount,
		"{{photos}}":        vars.Photos,
		"{{amenities}}":     vars.Amenities,
		"{{description}}":   vars.Description,
		"{{changes}}":       vars.Changes,
		"{{issues}}":        vars.Issues,
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// LoadFromFile loads a template from a file.
func LoadFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	return string(data), nil
}

// GetTemplate returns the custom template at customPath, or the embedded
// default when customPath is empty.
func GetTemplate(customPath string) (string, error) {
	if customPath == "" {
		return DefaultReview, nil
	}
	return LoadFromFile(customPath)
}

// BuildReview renders the review sheet for d as markdown.
func BuildReview(d draft.Draft, templatePath string) (string, error) {
	tmpl, err := GetTemplate(templatePath)
	if err != nil {
		return "", err
	}
	out := Render(tmpl, VariablesFor(d))
	logger.Debug("Review sheet rendered: %d characters", len(out))
	return out, nil
}

// VariablesFor formats every field of d.
func VariablesFor(d draft.Draft) Variables {
	return Variables{
		Title:        orDash(d.Title, "(untitled listing)"),
		PropertyType: humanize(orDash(string(d.PropertyType), "type not set")),
		RentMode:     humanize(orDash(string(d.RentMode), "rent mode not set")),
		Flow:         string(d.Flow),
		Location:     formatLocation(d.Location),
		Pricing:      formatPricing(d.Pricing),
		PhotoCount:   strconv.Itoa(len(d.Photos)),
		Photos:       formatPhotos(d.Photos),
		Amenities:    formatAmenities(d.Amenities),
		Description:  orDash(strings.TrimSpace(d.Description), "_No description yet._"),
		Changes:      formatChanges(d),
		Issues:       formatIssues(d),
	}
}

func formatLocation(loc draft.Location) string {
	var parts []string
	for _, p := range []string{loc.Street, loc.Building, loc.District, loc.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "_Not set._"
	}
	line := strings.Join(parts, ", ")
	if loc.Geo != nil {
		line += fmt.Sprintf(" (%.5f, %.5f)", loc.Geo.Lat, loc.Geo.Lng)
	}
	return line
}

func formatPricing(p draft.Pricing) string {
	if p.Price <= 0 {
		return "_No price yet._"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- Price: %s\n", money(p.Price)))
	sb.WriteString(fmt.Sprintf("- Deposit: %s\n", money(p.Deposit)))
	sb.WriteString(fmt.Sprintf("- Commission: %s%%\n", strconv.FormatFloat(p.Commission, 'f', -1, 64)))
	if p.Utilities != "" {
		sb.WriteString(fmt.Sprintf("- Utilities: %s\n", p.Utilities))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatPhotos(list []photo.Draft) string {
	if len(list) == 0 {
		return "_No photos yet._"
	}
	var sb strings.Builder
	for _, p := range photo.FinalOrder(list) {
		name := p.Filename
		if name == "" {
			name = p.URL
		}
		marker := ""
		if p.Cover {
			marker = " **cover**"
		}
		status := ""
		if p.IsNew() {
			status = " (new)"
		}
		sb.WriteString(fmt.Sprintf("%d. %s · %s%s%s\n", p.Order+1, name, humanize(string(p.Tag)), status, marker))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatAmenities(ids []string) string {
	if len(ids) == 0 {
		return "_None selected._"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = humanize(id)
	}
	return strings.Join(names, ", ")
}

// formatChanges diffs the text fields against the hydrated record.
func formatChanges(d draft.Draft) string {
	if d.Original == nil {
		return ""
	}
	before := textBlock(d.Original.Title, d.Original.Description)
	after := textBlock(d.Title, d.Description)
	if before == after {
		return ""
	}
	diff := udiff.Unified("published", "draft", before, after)
	return "\n## Changes\n```diff\n" + strings.TrimSuffix(diff, "\n") + "\n```\n"
}

func formatIssues(d draft.Draft) string {
	failures := validate.Final(d.Flow, d)
	if len(failures) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n## Still missing\n")
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("- %s\n", f.Error()))
	}
	return sb.String()
}

func textBlock(title, description string) string {
	return "Title: " + title + "\n\n" + strings.TrimSpace(description) + "\n"
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// humanize turns an identifier such as living_room into "Living room".
func humanize(id string) string {
	if id == "" {
		return id
	}
	s := strings.ReplaceAll(id, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// RenderTerminal renders markdown for a terminal of the given width.
// Falls back to the raw markdown if rendering fails.
func RenderTerminal(markdown string, width int) string {
	if width <= 0 || width > 120 {
		width = 100
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}

	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}
