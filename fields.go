package portal

import (
	"context"
	"net/url"
	"strings"

	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/views"
)

// fieldSpec declares one form input. Labels come from the Field.<Name>
// message; choice labels from ChoicePrefix+value.
type fieldSpec struct {
	Name         string
	Kind         string
	Required     bool
	Source       string
	Accept       string
	Help         string
	Choices      []string
	ChoicePrefix string
	Load         func(ctx context.Context) ([]views.Option, error)
}

func fieldNames(specs []fieldSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Kind != "file" && s.Kind != "static" {
			names = append(names, s.Name)
		}
	}
	return names
}

// checkboxNames lists the checkbox fields; an unticked box is absent
// from a submission.
func checkboxNames(specs []fieldSpec) []string {
	var names []string
	for _, s := range specs {
		if s.Kind == "checkbox" {
			names = append(names, s.Name)
		}
	}
	return names
}

// formValues returns the submitted values of the declared fields only.
func formValues(submitted url.Values, specs []fieldSpec) url.Values {
	out := make(url.Values, len(specs))
	for _, name := range fieldNames(specs) {
		if vs, ok := submitted[name]; ok {
			out[name] = vs
		}
	}
	return out
}

// valuesOf collects name and its indexed forms (name[0], name[1], ...).
func valuesOf(vals url.Values, name string) []string {
	out := append([]string(nil), vals[name]...)
	for k, vs := range vals {
		if strings.HasPrefix(k, name+"[") {
			out = append(out, vs...)
		}
	}
	return out
}

// buildFields renders specs with vals and per-field errors. Options whose
// loader fails are left empty; the caller has already logged it.
func buildFields(ctx context.Context, tr *locale.Translator, specs []fieldSpec, vals url.Values, errs map[string]string) []views.Field {
	fields := make([]views.Field, 0, len(specs))
	for _, s := range specs {
		f := views.Field{
			Name:     s.Name,
			Label:    tr.T("Field." + s.Name),
			Kind:     s.Kind,
			Value:    vals.Get(s.Name),
			Required: s.Required,
			Error:    errs[s.Name],
			Source:   s.Source,
			Accept:   s.Accept,
		}
		if s.Help != "" {
			f.Help = tr.T(s.Help)
		}
		if s.Kind == "multiselect" {
			f.Values = valuesOf(vals, s.Name)
		}
		for _, ch := range s.Choices {
			f.Options = append(f.Options, views.Option{Value: ch, Label: tr.T(s.ChoicePrefix + ch)})
		}
		if s.Load != nil {
			if opts, err := s.Load(ctx); err == nil {
				f.Options = append(f.Options, opts...)
			}
		}
		for i := range f.Options {
			f.Options[i].Selected = f.Options[i].Value == f.Value || f.Has(f.Options[i].Value)
		}
		fields = append(fields, f)
	}
	return fields
}
