package portal

import (
	"context"
	"strconv"
	"time"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/views"
)

func textCell(s string) views.Cell { return views.Cell{Text: s} }
func statusCell(s api.Status) views.Cell { return views.Cell{Status: string(s)} }
func flagCell(b bool) views.Cell { return views.Cell{Flag: &b} }
func imageCell(path string) views.Cell { return views.Cell{Image: path} }
func linkCell(href, text string) views.Cell { return views.Cell{Link: href, Text: text} }

func dateCell(t time.Time) views.Cell {
	if t.IsZero() {
		return views.Cell{}
	}
	return views.Cell{Text: t.Format("2006-01-02")}
}

func newestFirst[T any](created func(T) time.Time) func([]T) []T {
	return func(items []T) []T {
		return lfm.SortBy(items, func(v T) int64 { return -created(v).Unix() })
	}
}

const slugHelp = "Field.slugHelp"

func (a *App) categoryOptions(ctx context.Context) ([]views.Option, error) {
	items, err := a.Backend.Categories.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	opts := make([]views.Option, 0, len(items))
	for _, c := range items {
		opts = append(opts, views.Option{Value: c.ID.String(), Label: c.Name})
	}
	return opts, nil
}

func (a *App) tagOptions(ctx context.Context) ([]views.Option, error) {
	items, err := a.Backend.Tags.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	opts := make([]views.Option, 0, len(items))
	for _, t := range items {
		opts = append(opts, views.Option{Value: t.ID.String(), Label: t.Name})
	}
	return opts, nil
}

func statusChoices(w *api.Workflow) []string {
	out := make([]string, 0, len(w.States()))
	for _, s := range w.States() {
		out = append(out, string(s))
	}
	return out
}

// adminResources declares every collection on the dashboard, in menu order.
func (a *App) adminResources() []adminResource {
	b := a.Backend
	return []adminResource{
		&resourceDef[api.ContactMessage]{
			a: a, name: "contact-messages", res: b.ContactMessages,
			initial: func() api.ContactMessage { return api.ContactMessage{} },
			columns: []column[api.ContactMessage]{
				{"fullName", func(m api.ContactMessage) views.Cell { return textCell(m.FullName) }},
				{"email", func(m api.ContactMessage) views.Cell { return textCell(m.Email) }},
				{"phone", func(m api.ContactMessage) views.Cell { return textCell(m.Phone) }},
				{"subject", func(m api.ContactMessage) views.Cell { return textCell(m.Subject) }},
				{"status", func(m api.ContactMessage) views.Cell { return statusCell(m.Status) }},
				{"createdAt", func(m api.ContactMessage) views.Cell { return dateCell(m.CreatedAt) }},
			},
			fields: []fieldSpec{
				{Name: "fullName", Kind: "static"},
				{Name: "email", Kind: "static"},
				{Name: "phone", Kind: "static"},
				{Name: "subject", Kind: "static"},
				{Name: "message", Kind: "static"},
				{Name: "reply", Kind: "textarea"},
			},
			workflow:  api.ContactWorkflow,
			status:    func(m api.ContactMessage) api.Status { return m.Status },
			setStatus: func(m *api.ContactMessage, s api.Status) { m.Status = s },
			search: []func(api.ContactMessage) string{
				func(m api.ContactMessage) string { return m.FullName },
				func(m api.ContactMessage) string { return m.Email },
				func(m api.ContactMessage) string { return m.Subject },
				func(m api.ContactMessage) string { return m.Message },
			},
			order:      newestFirst(func(m api.ContactMessage) time.Time { return m.CreatedAt }),
			exportable: true,
		},
		&resourceDef[api.JobApplication]{
			a: a, name: "job-applications", res: b.JobApplications,
			initial: func() api.JobApplication { return api.JobApplication{} },
			columns: []column[api.JobApplication]{
				{"fullName", func(j api.JobApplication) views.Cell { return textCell(j.FullName) }},
				{"email", func(j api.JobApplication) views.Cell { return textCell(j.Email) }},
				{"phone", func(j api.JobApplication) views.Cell { return textCell(j.Phone) }},
				{"position", func(j api.JobApplication) views.Cell { return textCell(j.Position) }},
				{"cv", func(j api.JobApplication) views.Cell {
					if j.CVURL == "" {
						return views.Cell{}
					}
					return linkCell(a.imageURL(j.CVURL), "CV")
				}},
				{"status", func(j api.JobApplication) views.Cell { return statusCell(j.Status) }},
				{"createdAt", func(j api.JobApplication) views.Cell { return dateCell(j.CreatedAt) }},
			},
			fields: []fieldSpec{
				{Name: "fullName", Kind: "static"},
				{Name: "email", Kind: "static"},
				{Name: "phone", Kind: "static"},
				{Name: "position", Kind: "static"},
				{Name: "coverLetter", Kind: "static"},
				{Name: "notes", Kind: "textarea"},
			},
			workflow:  api.JobWorkflow,
			status:    func(j api.JobApplication) api.Status { return j.Status },
			setStatus: func(j *api.JobApplication, s api.Status) { j.Status = s },
			extras: []extraFilter[api.JobApplication]{
				{name: "position", value: func(j api.JobApplication) string { return j.Position }},
			},
			search: []func(api.JobApplication) string{
				func(j api.JobApplication) string { return j.FullName },
				func(j api.JobApplication) string { return j.Email },
				func(j api.JobApplication) string { return j.Position },
			},
			order:      newestFirst(func(j api.JobApplication) time.Time { return j.CreatedAt }),
			exportable: true,
		},
		&resourceDef[api.Partnership]{
			a: a, name: "partnerships", res: b.Partnerships,
			initial: func() api.Partnership { return api.Partnership{} },
			columns: []column[api.Partnership]{
				{"organizationName", func(p api.Partnership) views.Cell { return textCell(p.OrganizationName) }},
				{"contactName", func(p api.Partnership) views.Cell { return textCell(p.ContactName) }},
				{"email", func(p api.Partnership) views.Cell { return textCell(p.Email) }},
				{"type", func(p api.Partnership) views.Cell { return textCell(p.Type) }},
				{"status", func(p api.Partnership) views.Cell { return statusCell(p.Status) }},
				{"createdAt", func(p api.Partnership) views.Cell { return dateCell(p.CreatedAt) }},
			},
			fields: []fieldSpec{
				{Name: "organizationName", Kind: "static"},
				{Name: "contactName", Kind: "static"},
				{Name: "email", Kind: "static"},
				{Name: "phone", Kind: "static"},
				{Name: "message", Kind: "static"},
				{Name: "notes", Kind: "textarea"},
			},
			workflow:  api.PartnershipWorkflow,
			status:    func(p api.Partnership) api.Status { return p.Status },
			setStatus: func(p *api.Partnership, s api.Status) { p.Status = s },
			extras: []extraFilter[api.Partnership]{
				{name: "type", value: func(p api.Partnership) string { return p.Type }, labelPrefix: "PartnershipType."},
			},
			search: []func(api.Partnership) string{
				func(p api.Partnership) string { return p.OrganizationName },
				func(p api.Partnership) string { return p.ContactName },
				func(p api.Partnership) string { return p.Email },
			},
			order:      newestFirst(func(p api.Partnership) time.Time { return p.CreatedAt }),
			exportable: true,
		},
		&resourceDef[api.Appointment]{
			a: a, name: "appointments", res: b.Appointments,
			initial: func() api.Appointment { return api.Appointment{} },
			columns: []column[api.Appointment]{
				{"fullName", func(ap api.Appointment) views.Cell { return textCell(ap.FullName) }},
				{"phone", func(ap api.Appointment) views.Cell { return textCell(ap.Phone) }},
				{"service", func(ap api.Appointment) views.Cell { return textCell(ap.Service) }},
				{"preferredDate", func(ap api.Appointment) views.Cell { return textCell(ap.PreferredDate) }},
				{"status", func(ap api.Appointment) views.Cell { return statusCell(ap.Status) }},
				{"createdAt", func(ap api.Appointment) views.Cell { return dateCell(ap.CreatedAt) }},
			},
			fields: []fieldSpec{
				{Name: "fullName", Kind: "static"},
				{Name: "phone", Kind: "static"},
				{Name: "email", Kind: "static"},
				{Name: "service", Kind: "static"},
				{Name: "preferredDate", Kind: "static"},
				{Name: "notes", Kind: "textarea"},
			},
			workflow:  api.AppointmentWorkflow,
			status:    func(ap api.Appointment) api.Status { return ap.Status },
			setStatus: func(ap *api.Appointment, s api.Status) { ap.Status = s },
			extras: []extraFilter[api.Appointment]{
				{name: "service", value: func(ap api.Appointment) string { return ap.Service }},
			},
			search: []func(api.Appointment) string{
				func(ap api.Appointment) string { return ap.FullName },
				func(ap api.Appointment) string { return ap.Phone },
				func(ap api.Appointment) string { return ap.Email },
			},
			order:      newestFirst(func(ap api.Appointment) time.Time { return ap.CreatedAt }),
			exportable: true,
		},
		&resourceDef[api.Service]{
			a: a, name: "services", res: b.Services,
			initial: func() api.Service { return api.Service{IsActive: true} },
			columns: []column[api.Service]{
				{"image", func(s api.Service) views.Cell { return imageCell(s.Image) }},
				{"title", func(s api.Service) views.Cell { return textCell(s.Title) }},
				{"orderIndex", func(s api.Service) views.Cell { return textCell(strconv.Itoa(s.OrderIndex)) }},
				{"isActive", func(s api.Service) views.Cell { return flagCell(s.IsActive) }},
			},
			fields: []fieldSpec{
				{Name: "title", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "title", Help: slugHelp},
				{Name: "summary", Kind: "textarea"},
				{Name: "description", Kind: "markdown"},
				{Name: "icon", Kind: "text"},
				{Name: "image", Kind: "text"},
				{Name: "orderIndex", Kind: "number"},
				{Name: "isActive", Kind: "checkbox"},
			},
			flag: serviceActive,
			search: []func(api.Service) string{
				func(s api.Service) string { return s.Title },
				func(s api.Service) string { return s.Summary },
			},
			order: func(items []api.Service) []api.Service { return lfm.SortBy(items, serviceOrder) },
			slug: &slugRule[api.Service]{
				title: func(s api.Service) string { return s.Title },
				get:   func(s api.Service) string { return s.Slug },
				set:   func(s *api.Service, v string) { s.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.Product]{
			a: a, name: "products", res: b.Products,
			initial: func() api.Product { return api.Product{IsActive: true} },
			columns: []column[api.Product]{
				{"image", func(p api.Product) views.Cell { return imageCell(p.Image) }},
				{"name", func(p api.Product) views.Cell { return textCell(p.Name) }},
				{"category", func(p api.Product) views.Cell { return textCell(p.Category) }},
				{"price", func(p api.Product) views.Cell {
					if !p.Price.IsPositive() {
						return views.Cell{}
					}
					return textCell(views.Money(p.Price, a.Config.Currency))
				}},
				{"isFeatured", func(p api.Product) views.Cell { return flagCell(p.IsFeatured) }},
				{"isActive", func(p api.Product) views.Cell { return flagCell(p.IsActive) }},
			},
			fields: []fieldSpec{
				{Name: "name", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "name", Help: slugHelp},
				{Name: "category", Kind: "text"},
				{Name: "summary", Kind: "textarea"},
				{Name: "description", Kind: "markdown"},
				{Name: "price", Kind: "number"},
				{Name: "image", Kind: "text"},
				{Name: "isActive", Kind: "checkbox"},
				{Name: "isFeatured", Kind: "checkbox"},
			},
			flag: productActive,
			extras: []extraFilter[api.Product]{
				{name: "category", value: productCategory},
			},
			search: []func(api.Product) string{
				func(p api.Product) string { return p.Name },
				func(p api.Product) string { return p.Summary },
			},
			slug: &slugRule[api.Product]{
				title: func(p api.Product) string { return p.Name },
				get:   func(p api.Product) string { return p.Slug },
				set:   func(p *api.Product, v string) { p.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.BlogPost]{
			a: a, name: "posts", res: b.Posts,
			initial: func() api.BlogPost { return api.BlogPost{Status: api.PostWorkflow.Initial()} },
			columns: []column[api.BlogPost]{
				{"coverImage", func(p api.BlogPost) views.Cell { return imageCell(p.CoverImage) }},
				{"title", func(p api.BlogPost) views.Cell { return textCell(p.Title) }},
				{"categoryId", func(p api.BlogPost) views.Cell {
					if p.Category != nil {
						return textCell(p.Category.Name)
					}
					return views.Cell{}
				}},
				{"status", func(p api.BlogPost) views.Cell { return statusCell(p.Status) }},
				{"publishedAt", func(p api.BlogPost) views.Cell {
					if p.PublishedAt == nil {
						return views.Cell{}
					}
					return dateCell(*p.PublishedAt)
				}},
			},
			fields: []fieldSpec{
				{Name: "title", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "title", Help: slugHelp},
				{Name: "excerpt", Kind: "textarea"},
				{Name: "content", Kind: "markdown", Required: true},
				{Name: "coverImage", Kind: "text"},
				{Name: "status", Kind: "select", Required: true, Choices: statusChoices(api.PostWorkflow), ChoicePrefix: "Status."},
				{Name: "categoryId", Kind: "select", Load: a.categoryOptions},
				{Name: "tagIds", Kind: "multiselect", Load: a.tagOptions},
			},
			workflow:  api.PostWorkflow,
			status:    postStatus,
			setStatus: func(p *api.BlogPost, s api.Status) { p.Status = s },
			extras: []extraFilter[api.BlogPost]{
				{name: "categoryId", value: func(p api.BlogPost) string { return postCategory(p).String() }, load: a.categoryOptions},
			},
			search: []func(api.BlogPost) string{
				func(p api.BlogPost) string { return p.Title },
				func(p api.BlogPost) string { return p.Excerpt },
			},
			order: newestFirst(func(p api.BlogPost) time.Time { return p.CreatedAt }),
			slug: &slugRule[api.BlogPost]{
				title: func(p api.BlogPost) string { return p.Title },
				get:   func(p api.BlogPost) string { return p.Slug },
				set:   func(p *api.BlogPost, v string) { p.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.BlogCategory]{
			a: a, name: "categories", res: b.Categories,
			initial: func() api.BlogCategory { return api.BlogCategory{} },
			columns: []column[api.BlogCategory]{
				{"name", func(c api.BlogCategory) views.Cell { return textCell(c.Name) }},
				{"slug", func(c api.BlogCategory) views.Cell { return textCell(c.Slug) }},
				{"description", func(c api.BlogCategory) views.Cell { return textCell(views.Truncate(c.Description, 80)) }},
			},
			fields: []fieldSpec{
				{Name: "name", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "name", Help: slugHelp},
				{Name: "description", Kind: "textarea"},
			},
			search: []func(api.BlogCategory) string{
				func(c api.BlogCategory) string { return c.Name },
			},
			slug: &slugRule[api.BlogCategory]{
				title: func(c api.BlogCategory) string { return c.Name },
				get:   func(c api.BlogCategory) string { return c.Slug },
				set:   func(c *api.BlogCategory, v string) { c.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.BlogTag]{
			a: a, name: "tags", res: b.Tags,
			initial: func() api.BlogTag { return api.BlogTag{} },
			columns: []column[api.BlogTag]{
				{"name", func(t api.BlogTag) views.Cell { return textCell(t.Name) }},
				{"slug", func(t api.BlogTag) views.Cell { return textCell(t.Slug) }},
			},
			fields: []fieldSpec{
				{Name: "name", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "name", Help: slugHelp},
			},
			search: []func(api.BlogTag) string{
				func(t api.BlogTag) string { return t.Name },
			},
			slug: &slugRule[api.BlogTag]{
				title: func(t api.BlogTag) string { return t.Name },
				get:   func(t api.BlogTag) string { return t.Slug },
				set:   func(t *api.BlogTag, v string) { t.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.Partner]{
			a: a, name: "partners", res: b.Partners,
			initial: func() api.Partner { return api.Partner{IsActive: true} },
			columns: []column[api.Partner]{
				{"logo", func(p api.Partner) views.Cell { return imageCell(p.Logo) }},
				{"name", func(p api.Partner) views.Cell { return textCell(p.Name) }},
				{"website", func(p api.Partner) views.Cell { return linkCell(p.Website, p.Website) }},
				{"orderIndex", func(p api.Partner) views.Cell { return textCell(strconv.Itoa(p.OrderIndex)) }},
				{"isActive", func(p api.Partner) views.Cell { return flagCell(p.IsActive) }},
			},
			fields: []fieldSpec{
				{Name: "name", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "name", Help: slugHelp},
				{Name: "logo", Kind: "text"},
				{Name: "website", Kind: "url"},
				{Name: "description", Kind: "textarea"},
				{Name: "orderIndex", Kind: "number"},
				{Name: "isActive", Kind: "checkbox"},
			},
			flag: partnerActive,
			search: []func(api.Partner) string{
				func(p api.Partner) string { return p.Name },
			},
			order: func(items []api.Partner) []api.Partner { return lfm.SortBy(items, partnerOrder) },
			slug: &slugRule[api.Partner]{
				title: func(p api.Partner) string { return p.Name },
				get:   func(p api.Partner) string { return p.Slug },
				set:   func(p *api.Partner, v string) { p.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.SuccessStory]{
			a: a, name: "stories", res: b.Stories,
			initial: func() api.SuccessStory { return api.SuccessStory{} },
			columns: []column[api.SuccessStory]{
				{"image", func(s api.SuccessStory) views.Cell { return imageCell(s.Image) }},
				{"title", func(s api.SuccessStory) views.Cell { return textCell(s.Title) }},
				{"patientName", func(s api.SuccessStory) views.Cell { return textCell(s.PatientName) }},
				{"orderIndex", func(s api.SuccessStory) views.Cell { return textCell(strconv.Itoa(s.OrderIndex)) }},
				{"isPublished", func(s api.SuccessStory) views.Cell { return flagCell(s.IsPublished) }},
			},
			fields: []fieldSpec{
				{Name: "title", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "title", Help: slugHelp},
				{Name: "patientName", Kind: "text"},
				{Name: "story", Kind: "markdown", Required: true},
				{Name: "image", Kind: "text"},
				{Name: "videoUrl", Kind: "url"},
				{Name: "orderIndex", Kind: "number"},
				{Name: "isPublished", Kind: "checkbox"},
			},
			flag: storyPublished,
			search: []func(api.SuccessStory) string{
				func(s api.SuccessStory) string { return s.Title },
				func(s api.SuccessStory) string { return s.PatientName },
			},
			order: func(items []api.SuccessStory) []api.SuccessStory { return lfm.SortBy(items, storyOrder) },
			slug: &slugRule[api.SuccessStory]{
				title: func(s api.SuccessStory) string { return s.Title },
				get:   func(s api.SuccessStory) string { return s.Slug },
				set:   func(s *api.SuccessStory, v string) { s.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
		&resourceDef[api.SponsorshipCase]{
			a: a, name: "sponsorship-cases", res: b.SponsorshipCases,
			initial: func() api.SponsorshipCase { return api.SponsorshipCase{Status: api.SponsorshipWorkflow.Initial()} },
			columns: []column[api.SponsorshipCase]{
				{"image", func(s api.SponsorshipCase) views.Cell { return imageCell(s.Image) }},
				{"title", func(s api.SponsorshipCase) views.Cell { return textCell(s.Title) }},
				{"targetAmount", func(s api.SponsorshipCase) views.Cell {
					return textCell(views.Money(s.TargetAmount, a.Config.Currency))
				}},
				{"raisedAmount", func(s api.SponsorshipCase) views.Cell {
					return textCell(views.Money(s.RaisedAmount, a.Config.Currency) + " (" + strconv.Itoa(s.Progress()) + "%)")
				}},
				{"status", func(s api.SponsorshipCase) views.Cell { return statusCell(s.Status) }},
				{"isUrgent", func(s api.SponsorshipCase) views.Cell { return flagCell(s.IsUrgent) }},
			},
			fields: []fieldSpec{
				{Name: "title", Kind: "text", Required: true},
				{Name: "slug", Kind: "slug", Source: "title", Help: slugHelp},
				{Name: "description", Kind: "markdown", Required: true},
				{Name: "image", Kind: "text"},
				{Name: "targetAmount", Kind: "number"},
				{Name: "raisedAmount", Kind: "number"},
				{Name: "status", Kind: "select", Required: true, Choices: statusChoices(api.SponsorshipWorkflow), ChoicePrefix: "Status."},
				{Name: "isUrgent", Kind: "checkbox"},
			},
			workflow:  api.SponsorshipWorkflow,
			status:    caseStatus,
			setStatus: func(s *api.SponsorshipCase, st api.Status) { s.Status = st },
			flag:      func(s api.SponsorshipCase) bool { return s.IsUrgent },
			search: []func(api.SponsorshipCase) string{
				func(s api.SponsorshipCase) string { return s.Title },
			},
			order: newestFirst(func(s api.SponsorshipCase) time.Time { return s.CreatedAt }),
			slug: &slugRule[api.SponsorshipCase]{
				title: func(s api.SponsorshipCase) string { return s.Title },
				get:   func(s api.SponsorshipCase) string { return s.Slug },
				set:   func(s *api.SponsorshipCase, v string) { s.Slug = v },
			},
			creatable: true,
			catalog:   true,
		},
	}
}
