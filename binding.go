package portal

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rehabcenter/portal/locale"
)

// binder decodes submitted forms into records, encodes records back into
// form values for display, and validates them.
type binder struct {
	dec      *form.Decoder
	enc      *form.Encoder
	validate *validator.Validate
}

func newBinder() *binder {
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		s := strings.TrimSpace(vals[0])
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	}, decimal.Decimal{})

	enc := form.NewEncoder()
	enc.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		d := x.(decimal.Decimal)
		if d.IsZero() {
			return []string{""}, nil
		}
		return []string{d.String()}, nil
	}, decimal.Decimal{})

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(formName)

	return &binder{dec: dec, enc: enc, validate: v}
}

func formName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// decode trims every value and decodes values into dst.
func (b *binder) decode(dst any, values url.Values) error {
	clean := make(url.Values, len(values))
	for k, vs := range values {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" || len(vs) == 1 {
				clean[k] = append(clean[k], v)
			}
		}
	}
	return b.dec.Decode(dst, clean)
}

// encode renders v as form values.
func (b *binder) encode(v any) url.Values {
	vals, err := b.enc.Encode(v)
	if err != nil {
		return url.Values{}
	}
	return vals
}

// check validates v and returns localized messages keyed by form field
// name, restricted to names when given.
func (b *binder) check(v any, tr *locale.Translator, names ...string) map[string]string {
	err := b.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": tr.T("Validation.invalid")}
	}
	only := make(map[string]bool, len(names))
	for _, n := range names {
		only[n] = true
	}
	out := make(map[string]string)
	for _, fe := range verrs {
		if len(only) > 0 && !only[fe.Field()] {
			continue
		}
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = tr.T("Validation."+fe.Tag(), "Param", fe.Param())
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// bind decodes vals into dst and validates the named fields. Values that
// fail to decode are reported against their field.
func (b *binder) bind(dst any, vals url.Values, tr *locale.Translator, names ...string) map[string]string {
	if err := b.decode(dst, vals); err != nil {
		var derrs form.DecodeErrors
		if !errors.As(err, &derrs) {
			return map[string]string{"": tr.T("Validation.invalid")}
		}
		out := make(map[string]string, len(derrs))
		for field := range derrs {
			out[field] = tr.T("Validation.invalid")
		}
		return out
	}
	return b.check(dst, tr, names...)
}

// zeroFields clears the struct fields of dst whose form name is in names,
// so that inputs absent from a submission (an unticked checkbox, an empty
// multiselect) decode as cleared rather than keeping the loaded value.
func zeroFields(dst any, names []string) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || !want[formName(f)] {
			continue
		}
		rv.Field(i).Set(reflect.Zero(f.Type))
	}
}
