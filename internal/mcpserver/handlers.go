package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/template"
	"github.com/rentloop/listr/internal/wizard"
)

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// registerTools registers the wizard tools with the MCP server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("draft-show",
			mcp.WithDescription("Show the current draft, the current step and what blocks moving on"),
		),
		s.handleShow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-flow",
			mcp.WithDescription("Choose the authoring flow. Only allowed on the mode step of a new listing"),
			mcp.WithString("flow", mcp.Required(),
				mcp.Enum(enumOf(flow.CreateFlows)...),
				mcp.Description("linear walks every step, fast and manual defer photos to the end"),
			),
		),
		s.handleFlow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-set",
			mcp.WithDescription("Set one or more listing fields. Omitted fields keep their value"),
			mcp.WithString("property_type", mcp.Enum(enumOf(draft.PropertyTypes)...)),
			mcp.WithString("rent_mode", mcp.Enum(enumOf(draft.RentModes)...)),
			mcp.WithString("city"),
			mcp.WithString("district"),
			mcp.WithString("street"),
			mcp.WithString("building"),
			mcp.WithString("title", mcp.Description("Listing headline")),
			mcp.WithString("description", mcp.Description("Listing body text")),
			mcp.WithNumber("price"),
			mcp.WithNumber("deposit"),
			mcp.WithNumber("commission", mcp.Description("Agent commission in percent")),
			mcp.WithString("utilities", mcp.Enum(enumOf(draft.UtilityOptions)...)),
			mcp.WithArray("amenities", mcp.WithStringItems(mcp.Enum(draft.Amenities...)),
				mcp.Description("Replaces the amenity list"),
			),
		),
		s.handleSet,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-next",
			mcp.WithDescription("Advance to the next step if the current step accepts the draft"),
		),
		s.handleNext,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-back",
			mcp.WithDescription("Go back one step"),
		),
		s.handleBack,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-add",
			mcp.WithDescription(fmt.Sprintf("Attach local image files. A listing holds at most %d photos", photo.MaxPhotos)),
			mcp.WithArray("paths", mcp.Required(), mcp.WithStringItems(),
				mcp.Description("Paths of image files on this machine"),
			),
		),
		s.handlePhotoAdd,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-remove",
			mcp.WithDescription("Remove a photo. Published photos are deleted on submit and can be restored until then"),
			mcp.WithString("id", mcp.Required()),
		),
		s.handlePhotoRemove,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-restore",
			mcp.WithDescription("Restore a removed published photo"),
			mcp.WithString("id", mcp.Required()),
		),
		s.handlePhotoRestore,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-cover",
			mcp.WithDescription("Make a photo the cover"),
			mcp.WithString("id", mcp.Required()),
		),
		s.handlePhotoCover,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-tag",
			mcp.WithDescription("Classify a photo"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("tag", mcp.Required(), mcp.Enum(enumOf(photo.Tags)...)),
		),
		s.handlePhotoTag,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("photo-move",
			mcp.WithDescription("Move a photo from one position to another (0-based)"),
			mcp.WithNumber("from", mcp.Required()),
			mcp.WithNumber("to", mcp.Required()),
		),
		s.handlePhotoMove,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-review",
			mcp.WithDescription("Render the review sheet as markdown"),
		),
		s.handleReview,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-submit",
			mcp.WithDescription("Create or update the listing on the backend"),
		),
		s.handleSubmit,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("draft-discard",
			mcp.WithDescription("Throw the draft away and start over"),
		),
		s.handleDiscard,
	)
}

// draftView is the JSON shape returned by draft-show.
type draftView struct {
	Step     flow.Step   `json:"step"`
	Steps    []flow.Step `json:"steps"`
	Editing  bool        `json:"editing"`
	Blockers []string    `json:"blockers,omitempty"`
	Draft    draft.Draft `json:"draft"`
}

func (s *Server) view() draftView {
	v := draftView{
		Step:    s.session.CurrentStep(),
		Steps:   s.session.Steps(),
		Editing: s.session.Editing(),
		Draft:   s.session.Draft(),
	}
	for _, f := range s.session.Blockers() {
		v.Blockers = append(v.Blockers, f.Error())
	}
	return v
}

func (s *Server) handleShow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.view(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode draft: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stepText summarises where the session stands after a change.
func (s *Server) stepText(prefix string) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s. Current step: %s", prefix, s.session.CurrentStep())
	if blockers := s.session.Blockers(); len(blockers) > 0 {
		reasons := make([]string, len(blockers))
		for i, b := range blockers {
			reasons[i] = b.Reason
		}
		msg += " (still needed: " + strings.Join(reasons, "; ") + ")"
	}
	return mcp.NewToolResultText(msg)
}

func (s *Server) handleFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("flow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := flow.ParseFlow(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.ChooseFlow(ctx, f); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.stepText("Flow set to " + string(f)), nil
}

func (s *Server) handleSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if len(args) == 0 {
		return mcp.NewToolResultError("no fields provided"), nil
	}

	d := s.session.Draft()
	var changed []string
	fail := func(field string, err error) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", field, err)), nil
	}

	if v, ok := args["property_type"].(string); ok {
		if err := s.session.SetPropertyType(ctx, draft.PropertyType(v)); err != nil {
			return fail("property_type", err)
		}
		changed = append(changed, "property_type")
	}
	if v, ok := args["rent_mode"].(string); ok {
		if err := s.session.SetRentMode(ctx, draft.RentMode(v)); err != nil {
			return fail("rent_mode", err)
		}
		changed = append(changed, "rent_mode")
	}

	loc := d.Location
	locChanged := false
	for key, dst := range map[string]*string{
		"city":     &loc.City,
		"district": &loc.District,
		"street":   &loc.Street,
		"building": &loc.Building,
	} {
		if v, ok := args[key].(string); ok {
			*dst = v
			locChanged = true
		}
	}
	if locChanged {
		if err := s.session.SetLocation(ctx, loc); err != nil {
			return fail("location", err)
		}
		changed = append(changed, "location")
	}

	if v, ok := args["title"].(string); ok {
		if err := s.session.SetTitle(ctx, v); err != nil {
			return fail("title", err)
		}
		changed = append(changed, "title")
	}
	if v, ok := args["description"].(string); ok {
		if err := s.session.SetDescription(ctx, v); err != nil {
			return fail("description", err)
		}
		changed = append(changed, "description")
	}

	p := d.Pricing
	priceChanged := false
	for key, dst := range map[string]*float64{
		"price":      &p.Price,
		"deposit":    &p.Deposit,
		"commission": &p.Commission,
	} {
		if v, ok := args[key].(float64); ok {
			*dst = v
			priceChanged = true
		}
	}
	if v, ok := args["utilities"].(string); ok {
		p.Utilities = draft.Utilities(v)
		priceChanged = true
	}
	if priceChanged {
		if err := s.session.SetPricing(ctx, p); err != nil {
			return fail("pricing", err)
		}
		changed = append(changed, "pricing")
	}

	if _, ok := args["amenities"]; ok {
		ids := request.GetStringSlice("amenities", nil)
		if err := s.session.SetAmenities(ctx, ids); err != nil {
			return fail("amenities", err)
		}
		changed = append(changed, "amenities")
	}

	if len(changed) == 0 {
		return mcp.NewToolResultError("no known fields provided"), nil
	}
	return s.stepText("Updated " + strings.Join(changed, ", ")), nil
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.session.GoNext(ctx)
	var blocked *wizard.BlockedError
	if errors.As(err, &blocked) {
		return mcp.NewToolResultError(blocked.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.stepText("Moved on"), nil
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.session.GoBack(ctx)
	return s.stepText("Went back"), nil
}

func (s *Server) handlePhotoAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := request.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("at least one path is required"), nil
	}

	files := make([]photo.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", p, err)), nil
		}
		files = append(files, photo.File{Name: filepath.Base(p), Data: data})
	}

	accepted, err := s.session.AddPhotos(ctx, files)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Added %d of %d photo(s):", accepted, len(files))
	list := s.session.Draft().Photos
	for _, p := range list[len(list)-accepted:] {
		result += fmt.Sprintf("\n  %s: %s", p.ID, p.Filename)
	}
	if accepted < len(files) {
		result += fmt.Sprintf("\nThe listing is full (%d photos)", photo.MaxPhotos)
	}
	return mcp.NewToolResultText(result), nil
}

// photoOp runs fn with the required id argument.
func (s *Server) photoOp(request mcp.CallToolRequest, done string, fn func(id string) error) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := fn(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s", done, id)), nil
}

func (s *Server) handlePhotoRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.photoOp(request, "Removed", func(id string) error {
		return s.session.RemovePhoto(ctx, id)
	})
}

func (s *Server) handlePhotoRestore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.photoOp(request, "Restored", func(id string) error {
		return s.session.RestorePhoto(ctx, id)
	})
}

func (s *Server) handlePhotoCover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.photoOp(request, "Cover is now", func(id string) error {
		return s.session.SetCover(ctx, id)
	})
}

func (s *Server) handlePhotoTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := request.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.photoOp(request, "Tagged "+tag+":", func(id string) error {
		return s.session.SetTag(ctx, id, photo.Tag(tag))
	})
}

func (s *Server) handlePhotoMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := request.RequireInt("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := request.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.MovePhoto(ctx, from, to); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved photo %d to %d", from, to)), nil
}

func (s *Server) handleReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := template.BuildReview(s.session.Draft(), s.reviewTemplate)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.Submit(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("submission failed: %v", err)), nil
	}

	verb := "updated"
	if res.Created {
		verb = "created"
	}
	result := fmt.Sprintf("Listing %s %s: %d uploaded, %d deleted, %d reordered",
		res.RecordID, verb, res.Uploaded, res.Deleted, res.Reordered)
	if res.Created && !res.Published {
		result += "\nThe listing was saved but not published"
	}
	for _, w := range res.Warnings {
		result += "\n  warning: " + w.String()
	}
	if out := strings.TrimSpace(s.session.HookOutput()); out != "" {
		result += "\n" + out
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleDiscard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Discard(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.stepText("Draft discarded"), nil
}
