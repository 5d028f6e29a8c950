package portal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/notify"
	"github.com/rehabcenter/portal/views"
)

// honeypotField is a visually hidden input real visitors leave empty.
const honeypotField = "website_url"

// publicForm is a visitor submission creating one backend record.
type publicForm[T any] struct {
	path    string
	key     string
	fields  []fieldSpec
	initial func() T
	upload  *uploadSpec
	create  func(ctx context.Context, v T, files []api.File) error
	notice  func(v T, tr *locale.Translator) notify.Notice
}

func (a *App) registerPublicForms(e *echo.Echo) {
	registerForm(e, a, a.contactForm())
	registerForm(e, a, a.jobForm())
	registerForm(e, a, a.partnershipForm())
	registerForm(e, a, a.appointmentForm())
}

func registerForm[T any](e *echo.Echo, a *App, f *publicForm[T]) {
	e.GET(f.path, func(c echo.Context) error {
		return f.render(a, c, http.StatusOK, f.blank(a), nil)
	})
	e.POST(f.path, f.submit(a))
}

func (f *publicForm[T]) blank(a *App) url.Values {
	return a.binder.encode(f.initial())
}

func (f *publicForm[T]) render(a *App, c echo.Context, code int, vals url.Values, errs map[string]string) error {
	tr := a.tr(c)
	title := tr.T(f.key + ".Title")
	return a.render(c, code, "form", views.PageMeta{Title: title}, views.PublicForm{
		Title:     title,
		Intro:     tr.T(f.key + ".Intro"),
		Action:    f.path,
		Fields:    buildFields(c.Request().Context(), tr, f.fields, vals, errs),
		Multipart: f.upload != nil,
		Submit:    tr.T(f.key + ".Submit"),
	})
}

func (f *publicForm[T]) submit(a *App) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		tr := a.tr(c)
		log := logger(c).WithField("form", f.path)

		params, err := c.FormParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
		}
		if strings.TrimSpace(params.Get(honeypotField)) != "" {
			log.Info("honeypot filled, submission dropped")
			a.toast(c, lfm.ToastSuccess, "Toast.Submitted")
			return f.render(a, c, http.StatusOK, f.blank(a), nil)
		}

		vals := formValues(params, f.fields)
		allowed, err := a.formLimiter.Allow(ctx, f.path+"|"+c.RealIP())
		if err != nil {
			log.WithError(err).Warn("form limiter unavailable")
		} else if !allowed {
			a.toast(c, lfm.ToastError, "Toast.TooMany")
			return f.render(a, c, http.StatusTooManyRequests, vals, nil)
		}

		v := f.initial()
		errs := a.binder.bind(&v, vals, tr, fieldNames(f.fields)...)
		var files []api.File
		if f.upload != nil {
			file, msgID := readUpload(c, *f.upload)
			if msgID != "" {
				if errs == nil {
					errs = map[string]string{}
				}
				errs[f.upload.field] = tr.T(msgID)
			} else {
				files = append(files, file)
			}
		}
		if len(errs) > 0 {
			a.toast(c, lfm.ToastError, "Toast.FixErrors")
			return f.render(a, c, http.StatusUnprocessableEntity, vals, errs)
		}

		d := lfm.NewDispatcher(nil, a.notifier(c), lfm.Messages{
			Created: tr.T("Toast.Submitted"),
			Failed:  tr.T("Toast.Failed"),
		})
		res, err := d.Create(ctx, func(ctx context.Context) error {
			return f.create(ctx, v, files)
		})
		if err != nil {
			log.WithError(err).Warn("submission failed")
			return f.render(a, c, failureStatus(err), vals, nil)
		}

		if f.notice != nil {
			n := f.notice(v, locale.New(a.bundle, a.defaultLang))
			a.goBackground(func(ctx context.Context) {
				if err := a.sender.Send(ctx, n); err != nil {
					a.Log.WithError(err).WithField("form", f.path).Warn("staff notification failed")
				}
			})
		}
		if res.ResetForm {
			return f.render(a, c, http.StatusOK, f.blank(a), nil)
		}
		return c.Redirect(http.StatusSeeOther, f.path)
	}
}

// failureStatus maps a backend failure to the status of the re-rendered form.
func failureStatus(err error) int {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func noticeFields(tr *locale.Translator, pairs ...string) []notify.Field {
	out := make([]notify.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, notify.Field{Label: tr.T("Field." + pairs[i]), Value: pairs[i+1]})
	}
	return out
}

func (a *App) contactForm() *publicForm[api.ContactMessage] {
	return &publicForm[api.ContactMessage]{
		path: "/contact/",
		key:  "Contact",
		fields: []fieldSpec{
			{Name: "fullName", Kind: "text", Required: true},
			{Name: "email", Kind: "email", Required: true},
			{Name: "phone", Kind: "tel", Required: true},
			{Name: "subject", Kind: "text"},
			{Name: "message", Kind: "textarea", Required: true},
		},
		initial: func() api.ContactMessage {
			return api.ContactMessage{Status: api.ContactWorkflow.Initial()}
		},
		create: func(ctx context.Context, v api.ContactMessage, _ []api.File) error {
			_, err := a.Backend.ContactMessages.Create(ctx, v)
			return err
		},
		notice: func(v api.ContactMessage, tr *locale.Translator) notify.Notice {
			return notify.Notice{
				Subject: tr.T("Notify.contact", "Name", v.FullName),
				Fields:  noticeFields(tr, "fullName", v.FullName, "email", v.Email, "phone", v.Phone, "subject", v.Subject, "message", v.Message),
				ReplyTo: v.Email,
				Link:    BuildURL(a.Config.URL, "admin", "contact-messages"),
			}
		},
	}
}

var cvUpload = uploadSpec{
	field:    "cv",
	required: true,
	maxSize:  5 << 20,
	allowed: []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
}

func (a *App) jobForm() *publicForm[api.JobApplication] {
	return &publicForm[api.JobApplication]{
		path: "/jobs/",
		key:  "Jobs",
		fields: []fieldSpec{
			{Name: "fullName", Kind: "text", Required: true},
			{Name: "email", Kind: "email", Required: true},
			{Name: "phone", Kind: "tel", Required: true},
			{Name: "position", Kind: "text", Required: true},
			{Name: "coverLetter", Kind: "textarea"},
			{Name: "cv", Kind: "file", Required: true, Accept: ".pdf,.doc,.docx"},
		},
		upload: &cvUpload,
		initial: func() api.JobApplication {
			return api.JobApplication{Status: api.JobWorkflow.Initial()}
		},
		create: func(ctx context.Context, v api.JobApplication, files []api.File) error {
			fields := map[string]string{
				"fullName":    v.FullName,
				"email":       v.Email,
				"phone":       v.Phone,
				"position":    v.Position,
				"coverLetter": v.CoverLetter,
				"status":      string(v.Status),
			}
			_, err := a.Backend.JobApplications.CreateMultipart(ctx, fields, files...)
			return err
		},
		notice: func(v api.JobApplication, tr *locale.Translator) notify.Notice {
			return notify.Notice{
				Subject: tr.T("Notify.jobs", "Name", v.FullName, "Position", v.Position),
				Fields:  noticeFields(tr, "fullName", v.FullName, "email", v.Email, "phone", v.Phone, "position", v.Position, "coverLetter", v.CoverLetter),
				ReplyTo: v.Email,
				Link:    BuildURL(a.Config.URL, "admin", "job-applications"),
			}
		},
	}
}

var partnershipTypes = []string{"medical", "charity", "corporate", "academic", "other"}

func (a *App) partnershipForm() *publicForm[api.Partnership] {
	return &publicForm[api.Partnership]{
		path: "/partnerships/",
		key:  "Partnerships",
		fields: []fieldSpec{
			{Name: "organizationName", Kind: "text", Required: true},
			{Name: "contactName", Kind: "text", Required: true},
			{Name: "email", Kind: "email", Required: true},
			{Name: "phone", Kind: "tel"},
			{Name: "type", Kind: "select", Choices: partnershipTypes, ChoicePrefix: "PartnershipType."},
			{Name: "message", Kind: "textarea", Required: true},
		},
		initial: func() api.Partnership {
			return api.Partnership{Status: api.PartnershipWorkflow.Initial()}
		},
		create: func(ctx context.Context, v api.Partnership, _ []api.File) error {
			_, err := a.Backend.Partnerships.Create(ctx, v)
			return err
		},
		notice: func(v api.Partnership, tr *locale.Translator) notify.Notice {
			typ := v.Type
			if typ != "" {
				typ = tr.T("PartnershipType." + typ)
			}
			return notify.Notice{
				Subject: tr.T("Notify.partnerships", "Name", v.OrganizationName),
				Fields:  noticeFields(tr, "organizationName", v.OrganizationName, "contactName", v.ContactName, "email", v.Email, "phone", v.Phone, "type", typ, "message", v.Message),
				ReplyTo: v.Email,
				Link:    BuildURL(a.Config.URL, "admin", "partnerships"),
			}
		},
	}
}

func (a *App) appointmentForm() *publicForm[api.Appointment] {
	return &publicForm[api.Appointment]{
		path: "/appointments/",
		key:  "Appointments",
		fields: []fieldSpec{
			{Name: "fullName", Kind: "text", Required: true},
			{Name: "phone", Kind: "tel", Required: true},
			{Name: "email", Kind: "email"},
			{Name: "service", Kind: "select", Load: a.serviceOptions},
			{Name: "preferredDate", Kind: "date", Required: true},
			{Name: "notes", Kind: "textarea"},
		},
		initial: func() api.Appointment {
			return api.Appointment{Status: api.AppointmentWorkflow.Initial()}
		},
		create: func(ctx context.Context, v api.Appointment, _ []api.File) error {
			_, err := a.Backend.Appointments.Create(ctx, v)
			return err
		},
		notice: func(v api.Appointment, tr *locale.Translator) notify.Notice {
			return notify.Notice{
				Subject: tr.T("Notify.appointments", "Name", v.FullName, "Date", v.PreferredDate),
				Fields:  noticeFields(tr, "fullName", v.FullName, "phone", v.Phone, "email", v.Email, "service", v.Service, "preferredDate", v.PreferredDate, "notes", v.Notes),
				ReplyTo: v.Email,
				Link:    BuildURL(a.Config.URL, "admin", "appointments"),
			}
		},
	}
}

// serviceOptions offers the active services by title.
func (a *App) serviceOptions(ctx context.Context) ([]views.Option, error) {
	items, err := a.Catalog.Services.List(ctx)
	if err != nil {
		return nil, err
	}
	var opts []views.Option
	for _, s := range activeServices(items) {
		opts = append(opts, views.Option{Value: s.Title, Label: s.Title})
	}
	return opts, nil
}
