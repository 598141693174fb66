package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/photowatch"
	"github.com/rentloop/listr/internal/template"
	"github.com/rentloop/listr/internal/tui"
	"github.com/rentloop/listr/internal/wizard"
	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Work on the saved draft without the TUI",
	Long: `Scriptable commands over the user's saved create draft. Every command
loads the draft, applies one change and saves it again, so they can be mixed
freely with 'listr new'.

Photos only live for the duration of one process, so they are attached when
submitting: listr draft submit --photo a.jpg --photo b.jpg ...`,
}

var draftSetFlags struct {
	propertyType string
	rentMode     string
	city         string
	district     string
	street       string
	building     string
	title        string
	description  string
	price        float64
	deposit      float64
	commission   float64
	utilities    string
	amenities    []string
}

var draftSubmitFlags struct {
	photos []string
}

func init() {
	rootCmd.AddCommand(draftCmd)

	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftFlowCmd)
	draftCmd.AddCommand(draftSetCmd)
	draftCmd.AddCommand(draftNextCmd)
	draftCmd.AddCommand(draftBackCmd)
	draftCmd.AddCommand(draftAmenityCmd)
	draftCmd.AddCommand(draftReviewCmd)
	draftCmd.AddCommand(draftEditDescriptionCmd)
	draftCmd.AddCommand(draftSubmitCmd)
	draftCmd.AddCommand(draftDiscardCmd)

	f := draftSetCmd.Flags()
	f.StringVar(&draftSetFlags.propertyType, "type", "", "Property type: "+joinIDs(draft.PropertyTypes))
	f.StringVar(&draftSetFlags.rentMode, "mode", "", "Rent mode: "+joinIDs(draft.RentModes))
	f.StringVar(&draftSetFlags.city, "city", "", "City")
	f.StringVar(&draftSetFlags.district, "district", "", "District")
	f.StringVar(&draftSetFlags.street, "street", "", "Street")
	f.StringVar(&draftSetFlags.building, "building", "", "Building number")
	f.StringVar(&draftSetFlags.title, "title", "", "Listing title")
	f.StringVar(&draftSetFlags.description, "description", "", "Listing description")
	f.Float64Var(&draftSetFlags.price, "price", 0, "Monthly price")
	f.Float64Var(&draftSetFlags.deposit, "deposit", 0, "Deposit")
	f.Float64Var(&draftSetFlags.commission, "commission", 0, "Agent commission")
	f.StringVar(&draftSetFlags.utilities, "utilities", "", "Utilities: "+joinIDs(draft.UtilityOptions))
	f.StringSliceVar(&draftSetFlags.amenities, "amenities", nil, "Comma-separated amenity ids (replaces the current set)")

	draftSubmitCmd.Flags().StringArrayVar(&draftSubmitFlags.photos, "photo", nil, "Photo file to upload (repeatable)")
}

// withDraft opens the user's create session, runs fn and stops the runtime.
func withDraft(cmd *cobra.Command, fn func(ctx context.Context, s *wizard.Session) error) error {
	a, _, stop, err := startApp()
	if err != nil {
		return err
	}
	defer stop()

	ctx := cmd.Context()
	s, err := a.NewSession(ctx, "", "")
	if err != nil {
		return fmt.Errorf("failed to open draft: %w", err)
	}
	return fn(ctx, s)
}

type draftStatus struct {
	Key      string      `json:"key"`
	Step     flow.Step   `json:"step"`
	Steps    []flow.Step `json:"steps"`
	Blockers []string    `json:"blockers,omitempty"`
	Draft    draft.Draft `json:"draft"`
}

func printStatus(s *wizard.Session) error {
	status := draftStatus{
		Key:   s.Key(),
		Step:  s.CurrentStep(),
		Steps: s.Steps(),
		Draft: s.Draft(),
	}
	for _, b := range s.Blockers() {
		status.Blockers = append(status.Blockers, b.Reason)
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printStep(s *wizard.Session) {
	fmt.Printf("Step: %s (%s)\n", s.CurrentStep(), s.CurrentStep().Title())
	for _, b := range s.Blockers() {
		fmt.Printf("  still needed: %s\n", b.Reason)
	}
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the draft as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			return printStatus(s)
		})
	},
}

var draftFlowCmd = &cobra.Command{
	Use:   "flow <linear|fast|manual>",
	Short: "Choose the wizard flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := flow.ParseFlow(args[0])
		if err != nil {
			return err
		}
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			if err := s.ChooseFlow(ctx, f); err != nil {
				return err
			}
			fmt.Printf("Flow: %s\n", f.Description())
			printStep(s)
			return nil
		})
	},
}

var draftSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set draft fields",
	Long: `Set one or more draft fields. Only the flags given are changed.

Example:
  listr draft set --type house --city Porto --price 950 --amenities wifi,parking`,
	Args: cobra.NoArgs,
	RunE: runDraftSet,
}

func runDraftSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.NFlag() == 0 {
		return errors.New("no fields given, see --help")
	}

	return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
		d := s.Draft()
		var changed []string

		if flags.Changed("type") {
			if err := s.SetPropertyType(ctx, draft.PropertyType(draftSetFlags.propertyType)); err != nil {
				return fmt.Errorf("type: %w", err)
			}
			changed = append(changed, "type")
		}
		if flags.Changed("mode") {
			if err := s.SetRentMode(ctx, draft.RentMode(draftSetFlags.rentMode)); err != nil {
				return fmt.Errorf("mode: %w", err)
			}
			changed = append(changed, "mode")
		}

		loc := d.Location
		locChanged := false
		for name, pair := range map[string]struct {
			dst *string
			val string
		}{
			"city":     {&loc.City, draftSetFlags.city},
			"district": {&loc.District, draftSetFlags.district},
			"street":   {&loc.Street, draftSetFlags.street},
			"building": {&loc.Building, draftSetFlags.building},
		} {
			if flags.Changed(name) {
				*pair.dst = pair.val
				locChanged = true
			}
		}
		if locChanged {
			if err := s.SetLocation(ctx, loc); err != nil {
				return fmt.Errorf("location: %w", err)
			}
			changed = append(changed, "location")
		}

		if flags.Changed("title") {
			if err := s.SetTitle(ctx, draftSetFlags.title); err != nil {
				return fmt.Errorf("title: %w", err)
			}
			changed = append(changed, "title")
		}
		if flags.Changed("description") {
			if err := s.SetDescription(ctx, draftSetFlags.description); err != nil {
				return fmt.Errorf("description: %w", err)
			}
			changed = append(changed, "description")
		}

		p := d.Pricing
		priceChanged := false
		for name, pair := range map[string]struct {
			dst *float64
			val float64
		}{
			"price":      {&p.Price, draftSetFlags.price},
			"deposit":    {&p.Deposit, draftSetFlags.deposit},
			"commission": {&p.Commission, draftSetFlags.commission},
		} {
			if flags.Changed(name) {
				*pair.dst = pair.val
				priceChanged = true
			}
		}
		if flags.Changed("utilities") {
			p.Utilities = draft.Utilities(draftSetFlags.utilities)
			priceChanged = true
		}
		if priceChanged {
			if err := s.SetPricing(ctx, p); err != nil {
				return fmt.Errorf("pricing: %w", err)
			}
			changed = append(changed, "pricing")
		}

		if flags.Changed("amenities") {
			if err := s.SetAmenities(ctx, draftSetFlags.amenities); err != nil {
				return fmt.Errorf("amenities: %w", err)
			}
			changed = append(changed, "amenities")
		}

		if len(changed) == 0 {
			return errors.New("no draft fields given, see --help")
		}
		fmt.Printf("Updated %s\n", strings.Join(changed, ", "))
		printStep(s)
		return nil
	})
}

var draftNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			if err := s.GoNext(ctx); err != nil {
				printStep(s)
				return err
			}
			printStep(s)
			return nil
		})
	},
}

var draftBackCmd = &cobra.Command{
	Use:   "back",
	Short: "Go back one step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			s.GoBack(ctx)
			printStep(s)
			return nil
		})
	},
}

var draftAmenityCmd = &cobra.Command{
	Use:   "amenity <id>",
	Short: "Toggle an amenity",
	Long:  "Toggle an amenity on or off. Known ids: " + joinIDs(draft.Amenities),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			if err := s.ToggleAmenity(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Amenities: %s\n", orDash(strings.Join(s.Draft().Amenities, ", ")))
			return nil
		})
	},
}

var draftReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Render the review sheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, stop, err := startApp()
		if err != nil {
			return err
		}
		defer stop()

		s, err := a.NewSession(cmd.Context(), "", "")
		if err != nil {
			return fmt.Errorf("failed to open draft: %w", err)
		}
		md, err := template.BuildReview(s.Draft(), a.ReviewTemplate())
		if err != nil {
			return err
		}
		fmt.Print(template.RenderTerminal(md, 80))
		return nil
	},
}

var draftEditDescriptionCmd = &cobra.Command{
	Use:   "edit-description",
	Short: "Edit the description in $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			editorCmd, path, err := tui.EditorCommand(s.Draft().Description, "listr_description_*.md")
			if err != nil {
				return err
			}
			defer func() { _ = os.Remove(path) }()

			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("editor failed: %w", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading edited description: %w", err)
			}
			if err := s.SetDescription(ctx, strings.TrimSpace(string(data))); err != nil {
				return err
			}
			fmt.Printf("Description saved (%d characters)\n", len([]rune(s.Draft().Description)))
			return nil
		})
	},
}

var draftSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Attach photos and submit the draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := photowatch.ReadFiles(draftSubmitFlags.photos)
		if err != nil {
			return err
		}
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			if len(files) > 0 {
				added, err := s.AddPhotos(ctx, files)
				if err != nil {
					return err
				}
				if added < len(files) {
					fmt.Printf("Only %d of %d photos fit (max %d)\n", added, len(files), photo.MaxPhotos)
				}
			}

			res, err := s.Submit(ctx)
			if err != nil {
				return errors.New(tui.DescribeSubmitError(err))
			}
			printResult(res, s.HookOutput())
			return nil
		})
	},
}

var draftDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Throw away the saved draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDraft(cmd, func(ctx context.Context, s *wizard.Session) error {
			if err := s.Discard(ctx); err != nil {
				return err
			}
			fmt.Println("Draft discarded.")
			return nil
		})
	},
}

func joinIDs[T ~string](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
