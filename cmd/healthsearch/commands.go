package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// missingValue selects records whose facet field is absent.
const missingValue = "(none)"

type hospitalFilterFlags struct {
	emergency  []string
	types      []string
	ownerships []string
}

func (f *hospitalFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.emergency, "emergency", nil, "Emergency services values to keep ("+missingValue+" for unset)")
	cmd.Flags().StringArrayVar(&f.types, "type", nil, "Hospital types to keep")
	cmd.Flags().StringArrayVar(&f.ownerships, "ownership", nil, "Hospital ownerships to keep")
}

func (f *hospitalFilterFlags) criteria() (entities.HospitalFilterCriteria, bool) {
	c := entities.HospitalFilterCriteria{
		EmergencyServices:  flagLabels(f.emergency),
		HospitalTypes:      flagLabels(f.types),
		HospitalOwnerships: flagLabels(f.ownerships),
	}
	set := len(c.EmergencyServices)+len(c.HospitalTypes)+len(c.HospitalOwnerships) > 0
	return c, set
}

func newHospitalsCmd(opts *globalOptions) *cobra.Command {
	var filters hospitalFilterFlags

	cmd := &cobra.Command{
		Use:   "hospitals <name>",
		Short: "Search hospitals by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runHospitalSearch(cmd, opts, filters, func(ctx context.Context, app *searchApp, id string) (*entities.Session, error) {
				return app.orchestrator.SearchHospitalsByName(ctx, id, query)
			})
		},
	}
	filters.register(cmd)

	return cmd
}

func newRadiusCmd(opts *globalOptions) *cobra.Command {
	var (
		filters hospitalFilterFlags
		address string
		radius  float64
	)

	cmd := &cobra.Command{
		Use:   "radius",
		Short: "Search hospitals within a radius of an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHospitalSearch(cmd, opts, filters, func(ctx context.Context, app *searchApp, id string) (*entities.Session, error) {
				return app.orchestrator.SearchHospitalsByRadius(ctx, id, address, radius)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Street address to search around")
	cmd.Flags().Float64Var(&radius, "radius", 10, "Search radius")
	cmd.MarkFlagRequired("address")
	filters.register(cmd)

	return cmd
}

func runHospitalSearch(cmd *cobra.Command, opts *globalOptions, filters hospitalFilterFlags, search func(context.Context, *searchApp, string) (*entities.Session, error)) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newSearchApp(opts)
	if err != nil {
		return err
	}
	s, err := app.sessions.Create(ctx)
	if err != nil {
		return err
	}

	if s, err = search(ctx, app, s.ID); err != nil {
		return err
	}
	if criteria, ok := filters.criteria(); ok {
		if s, err = app.orchestrator.ApplyHospitalFilters(ctx, s.ID, criteria); err != nil {
			return err
		}
	}

	return render(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, services.BuildView(s))
}

func newInsuranceCmd(opts *globalOptions) *cobra.Command {
	var (
		fields        []string
		issuers       []string
		planTypes     []string
		metalLevels   []string
		premiumMin    float64
		premiumMax    float64
		deductibleMin float64
		deductibleMax float64
		hsa           bool
		national      bool
	)

	cmd := &cobra.Command{
		Use:   "insurance",
		Short: "Search insurance plans",
		Example: `  healthsearch insurance --field zip=10001 --field age=40 --metal Gold --premium-max 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := parseFormFields(fields)
			if err != nil {
				return err
			}

			criteria := entities.InsuranceFilterCriteria{
				Issuers:            flagLabels(issuers),
				PlanTypes:          flagLabels(planTypes),
				MetalLevels:        flagLabels(metalLevels),
				Premium:            flagRange(cmd, "premium-min", premiumMin, "premium-max", premiumMax),
				Deductible:         flagRange(cmd, "deductible-min", deductibleMin, "deductible-max", deductibleMax),
				HSAEligible:        hsa,
				HasNationalNetwork: national,
			}
			if err := criteria.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			app, err := newSearchApp(opts)
			if err != nil {
				return err
			}
			s, err := app.sessions.Create(ctx)
			if err != nil {
				return err
			}
			if s, err = app.sessions.SelectTab(ctx, s.ID, entities.TabInsuranceSearch); err != nil {
				return err
			}
			if s, err = app.orchestrator.SearchInsurancePlans(ctx, s.ID, form); err != nil {
				return err
			}
			if s, err = app.orchestrator.ApplyInsuranceFilters(ctx, s.ID, criteria); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, services.BuildView(s))
		},
	}

	cmd.Flags().StringArrayVar(&fields, "field", nil, "Search form field as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&issuers, "issuer", nil, "Issuers to keep")
	cmd.Flags().StringArrayVar(&planTypes, "plan-type", nil, "Plan types to keep")
	cmd.Flags().StringArrayVar(&metalLevels, "metal", nil, "Metal levels to keep")
	cmd.Flags().Float64Var(&premiumMin, "premium-min", 0, "Minimum monthly premium")
	cmd.Flags().Float64Var(&premiumMax, "premium-max", 0, "Maximum monthly premium")
	cmd.Flags().Float64Var(&deductibleMin, "deductible-min", 0, "Minimum deductible")
	cmd.Flags().Float64Var(&deductibleMax, "deductible-max", 0, "Maximum deductible")
	cmd.Flags().BoolVar(&hsa, "hsa", false, "Only HSA eligible plans")
	cmd.Flags().BoolVar(&national, "national", false, "Only plans with a national network")

	return cmd
}

func flagLabels(values []string) []entities.Label {
	if len(values) == 0 {
		return nil
	}
	out := make([]entities.Label, 0, len(values))
	for _, v := range values {
		if v == missingValue {
			out = append(out, entities.Missing)
			continue
		}
		out = append(out, entities.L(v))
	}
	return out
}

// flagRange builds a range from only the bounds the user actually set.
func flagRange(cmd *cobra.Command, minFlag string, min float64, maxFlag string, max float64) *entities.Range {
	var lo, hi *float64
	if cmd.Flags().Changed(minFlag) {
		lo = &min
	}
	if cmd.Flags().Changed(maxFlag) {
		hi = &max
	}
	return entities.NewRange(lo, hi)
}

// parseFormFields turns key=value pairs into the insurance search form.
// Values are sent as strings, matching what an HTML form posts.
func parseFormFields(fields []string) (entities.InsuranceSearchForm, error) {
	form := entities.InsuranceSearchForm{}
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q, expected key=value", f)
		}
		form[key] = value
	}
	return form, nil
}
