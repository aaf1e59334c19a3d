package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

var errSearchFailed = errors.New("search failed")

// render prints the view and turns a failed search into a non-zero exit.
func render(w, errOut io.Writer, opts *globalOptions, view entities.View) error {
	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else {
		switch {
		case view.Hospitals != nil:
			writeHospitals(w, view.Hospitals)
		case view.Insurance != nil:
			writeInsurancePlans(w, view.Insurance)
		}
	}

	if msg := viewError(view); msg != "" {
		fmt.Fprintln(errOut, msg)
		return errSearchFailed
	}
	return nil
}

func viewError(view entities.View) string {
	if view.Hospitals != nil && view.Hospitals.Status == entities.SearchStatusFailed {
		return view.Hospitals.Error
	}
	if view.Insurance != nil && view.Insurance.Status == entities.SearchStatusFailed {
		return view.Insurance.Error
	}
	return ""
}

func writeHospitals(w io.Writer, v *entities.HospitalView) {
	if v.Status == entities.SearchStatusFailed {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tOWNERSHIP\tEMERGENCY")
	for _, h := range v.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			orDash(h.Text("name")),
			labelText(h.HospitalType),
			labelText(h.HospitalOwnership),
			labelText(h.EmergencyServices),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d of %d hospitals\n", len(v.Results), v.TotalCount)
	if v.FilterOptions != nil {
		writeOptions(w, "emergency", v.FilterOptions.EmergencyServices)
		writeOptions(w, "type", v.FilterOptions.HospitalTypes)
		writeOptions(w, "ownership", v.FilterOptions.HospitalOwnerships)
	}
}

func writeInsurancePlans(w io.Writer, v *entities.InsuranceView) {
	if v.Status == entities.SearchStatusFailed {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tISSUER\tTYPE\tMETAL\tPREMIUM\tDEDUCTIBLE\tHSA\tNATIONAL")
	for _, p := range v.Results {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			orDash(name),
			labelText(p.IssuerName()),
			labelText(p.Type),
			labelText(p.MetalLevel),
			amount(p.Premium),
			amount(p.PrimaryDeductible()),
			yesNo(p.HSAEligible),
			yesNo(p.HasNationalNetwork),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d of %d plans\n", len(v.Results), v.TotalCount)
	if v.FilterOptions != nil {
		writeOptions(w, "issuer", v.FilterOptions.Issuers)
		writeOptions(w, "plan-type", v.FilterOptions.PlanTypes)
		writeOptions(w, "metal", v.FilterOptions.MetalLevels)
	}
}

func writeOptions(w io.Writer, flag string, labels []entities.Label) {
	if len(labels) == 0 {
		return
	}
	values := make([]string, 0, len(labels))
	for _, l := range labels {
		values = append(values, strconv.Quote(labelText(l)))
	}
	fmt.Fprintf(w, "  --%s: %s\n", flag, strings.Join(values, ", "))
}

func labelText(l entities.Label) string {
	if !l.Valid {
		return missingValue
	}
	return l.Value
}

func amount(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
