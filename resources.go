package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/export"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/views"
)

// adminResource is a dashboard-managed collection.
type adminResource interface {
	Name() string
	register(g *echo.Group)
	card(ctx context.Context, tr *locale.Translator) views.DashboardCard
}

type column[T any] struct {
	name string
	cell func(T) views.Cell
}

// extraFilter is a select filter over one field. Options come from Load
// when set, otherwise from the distinct values of the loaded records.
type extraFilter[T any] struct {
	name        string
	value       func(T) string
	labelPrefix string
	load        func(ctx context.Context) ([]views.Option, error)
}

type slugRule[T any] struct {
	title func(T) string
	get   func(T) string
	set   func(*T, string)
}

// resourceDef describes how one backend collection is listed, filtered,
// edited and exported on the dashboard.
type resourceDef[T api.Entity] struct {
	a          *App
	name       string
	res        *api.Resource[T]
	initial    func() T
	columns    []column[T]
	fields     []fieldSpec
	workflow   *api.Workflow
	status     func(T) api.Status
	setStatus  func(*T, api.Status)
	flag       func(T) bool
	extras     []extraFilter[T]
	search     []func(T) string
	order      func([]T) []T
	slug       *slugRule[T]
	creatable  bool
	exportable bool
	catalog    bool
}

func (r *resourceDef[T]) Name() string { return r.name }

func (r *resourceDef[T]) base() string { return "/admin/" + r.name + "/" }

func (r *resourceDef[T]) itemURL(id api.ID) string {
	return r.base() + views.PathEscape(id.String()) + "/"
}

func (r *resourceDef[T]) register(g *echo.Group) {
	p := "/" + r.name + "/"
	g.GET(p, r.handleList)
	if r.creatable {
		g.GET(p+"new/", r.handleNew)
		g.POST(p, r.handleCreate)
	}
	if r.exportable {
		g.GET(p+"export.xlsx", r.handleExport)
	}
	g.GET(p+":id/", r.handleEdit)
	g.POST(p+":id/", r.handleUpdate)
	g.GET(p+":id/delete/", r.handleDeleteConfirm)
	g.POST(p+":id/delete/", r.handleDelete)
	if r.workflow != nil {
		g.GET(p+":id/status/", r.handleStatusConfirm)
		g.POST(p+":id/status/", r.handleStatus)
	}
}

func (r *resourceDef[T]) listAll(ctx context.Context) ([]T, error) {
	items, err := r.res.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	if r.order != nil {
		items = r.order(items)
	}
	return items, nil
}

func (r *resourceDef[T]) extraNames() []string {
	names := make([]string, 0, len(r.extras))
	for _, x := range r.extras {
		names = append(names, x.name)
	}
	return names
}

func (r *resourceDef[T]) messages(tr *locale.Translator) lfm.Messages {
	return lfm.Messages{
		Created: tr.T("Toast.Created"),
		Updated: tr.T("Toast.Updated"),
		Deleted: tr.T("Toast.Deleted"),
		Failed:  tr.T("Toast.Failed"),
	}
}

// afterMutation drops the public catalog copy of this collection.
func (r *resourceDef[T]) afterMutation() {
	if r.catalog {
		r.a.Catalog.Invalidate(r.name)
	}
}

// predicates builds the filter chain for crit. The status dimension is
// returned separately so counters can be computed without it.
func (r *resourceDef[T]) predicates(crit lfm.Criteria) (status lfm.Predicate[T], rest []lfm.Predicate[T]) {
	if r.status != nil {
		status = lfm.StatusIs(r.status, crit.Status)
	}
	if r.flag != nil {
		rest = append(rest, lfm.FlagIs(r.flag, crit.Flag))
	}
	for _, x := range r.extras {
		rest = append(rest, lfm.Equals(x.value, crit.Extra[x.name]))
	}
	rest = append(rest, lfm.Contains(crit.Query, r.search...))
	return status, rest
}

func (r *resourceDef[T]) filterURL(crit lfm.Criteria) string {
	if q := crit.Values().Encode(); q != "" {
		return r.base() + "?" + q
	}
	return r.base()
}

func withStatus(crit lfm.Criteria, s string) lfm.Criteria {
	crit.Status = s
	return crit
}

func withFlag(crit lfm.Criteria, f string) lfm.Criteria {
	crit.Flag = f
	return crit
}

// statusOptions counts base per declared status, plus the All entry.
func (r *resourceDef[T]) statusOptions(tr *locale.Translator, base []T, crit lfm.Criteria) []views.FilterOption {
	if r.workflow == nil {
		return nil
	}
	opts := []views.FilterOption{{
		Value:  lfm.All,
		Label:  tr.T("Filter.All"),
		Count:  len(base),
		Active: crit.Status == lfm.All,
		URL:    r.filterURL(withStatus(crit, lfm.All)),
	}}
	for _, s := range r.workflow.States() {
		opts = append(opts, views.FilterOption{
			Value:  string(s),
			Label:  tr.T("Status." + string(s)),
			Count:  lfm.Count(base, lfm.StatusIs(r.status, string(s))),
			Active: crit.Status == string(s),
			URL:    r.filterURL(withStatus(crit, string(s))),
		})
	}
	return opts
}

func (r *resourceDef[T]) flagOptions(tr *locale.Translator, items []T, crit lfm.Criteria) []views.FilterOption {
	if r.flag == nil {
		return nil
	}
	// Flag counters honour every other dimension.
	status, rest := r.predicates(withFlag(crit, lfm.All))
	base := lfm.Filter(items, append(rest, status)...)
	opts := make([]views.FilterOption, 0, 3)
	for _, v := range []struct{ value, label string }{
		{lfm.All, "Filter.All"},
		{"true", "Filter.Yes"},
		{"false", "Filter.No"},
	} {
		opts = append(opts, views.FilterOption{
			Value:  v.value,
			Label:  tr.T(v.label),
			Count:  lfm.Count(base, lfm.FlagIs(r.flag, v.value)),
			Active: crit.Flag == v.value,
			URL:    r.filterURL(withFlag(crit, v.value)),
		})
	}
	return opts
}

func (r *resourceDef[T]) extraOptions(ctx context.Context, tr *locale.Translator, items []T, crit lfm.Criteria) []views.ExtraFilter {
	out := make([]views.ExtraFilter, 0, len(r.extras))
	for _, x := range r.extras {
		var opts []views.Option
		if x.load != nil {
			loaded, err := x.load(ctx)
			if err == nil {
				opts = loaded
			}
		} else {
			var seen []string
			for _, item := range items {
				if v := x.value(item); v != "" && !slices.Contains(seen, v) {
					seen = append(seen, v)
				}
			}
			slices.Sort(seen)
			for _, v := range seen {
				label := v
				if x.labelPrefix != "" {
					label = tr.T(x.labelPrefix + v)
				}
				opts = append(opts, views.Option{Value: v, Label: label})
			}
		}
		for i := range opts {
			opts[i].Selected = opts[i].Value == crit.Extra[x.name]
		}
		out = append(out, views.ExtraFilter{Name: x.name, Label: tr.T("Field." + x.name), Options: opts})
	}
	return out
}

// filtered applies crit. statusBase is items filtered by every dimension
// except status, which the status counters are computed over.
func (r *resourceDef[T]) filtered(items []T, crit lfm.Criteria) (visible, statusBase []T) {
	status, rest := r.predicates(crit)
	statusBase = lfm.Filter(items, rest...)
	return lfm.Filter(statusBase, status), statusBase
}

func (r *resourceDef[T]) listView(c echo.Context, items []T, crit lfm.Criteria) views.ListView {
	tr := r.a.tr(c)
	visible, statusBase := r.filtered(items, crit)

	cols := make([]string, 0, len(r.columns))
	for _, col := range r.columns {
		cols = append(cols, tr.T("Field."+col.name))
	}
	rows := make([]views.Row, 0, len(visible))
	for _, item := range visible {
		rows = append(rows, r.row(tr, item))
	}

	lv := views.ListView{
		Resource:   r.name,
		Title:      tr.T("Resource." + r.name),
		Base:       r.base(),
		Columns:    cols,
		Rows:       rows,
		Statuses:   r.statusOptions(tr, statusBase, crit),
		Flags:      r.flagOptions(tr, items, crit),
		Extras:     r.extraOptions(c.Request().Context(), tr, items, crit),
		Query:      crit.Query,
		Total:      len(visible),
		Creatable:  r.creatable,
		EmptyLabel: tr.T("Admin.Empty"),
	}
	if r.exportable {
		lv.ExportURL = r.base() + "export.xlsx"
		if q := crit.Values().Encode(); q != "" {
			lv.ExportURL += "?" + q
		}
	}
	return lv
}

func (r *resourceDef[T]) row(tr *locale.Translator, item T) views.Row {
	id := item.EntityID()
	row := views.Row{ID: id.String(), EditURL: r.itemURL(id)}
	for _, col := range r.columns {
		row.Cells = append(row.Cells, col.cell(item))
	}
	if r.workflow != nil {
		for _, next := range r.workflow.Next(r.status(item)) {
			row.Actions = append(row.Actions, views.Action{
				Label: tr.T("Status." + string(next)),
				URL:   r.itemURL(id) + "status/?to=" + url.QueryEscape(string(next)),
			})
		}
	}
	row.Actions = append(row.Actions, views.Action{Label: tr.T("Admin.Delete"), URL: r.itemURL(id) + "delete/"})
	return row
}

func (r *resourceDef[T]) renderList(c echo.Context, items []T, crit lfm.Criteria) error {
	tr := r.a.tr(c)
	return r.a.render(c, http.StatusOK, "admin_list", views.PageMeta{Title: tr.T("Resource." + r.name)},
		r.listView(c, items, crit))
}

// unauthorized reports whether err means the session expired.
func (r *resourceDef[T]) unauthorized(err error) bool {
	return errors.Is(err, api.ErrUnauthorized)
}

func (r *resourceDef[T]) handleList(c echo.Context) error {
	crit := lfm.ParseCriteria(c.QueryParams(), r.extraNames()...)
	f := lfm.NewListFetcher(r.listAll, lfm.OnFailure(func(err error) {
		logger(c).WithError(err).WithField("resource", r.name).Warn("list failed")
		if !r.unauthorized(err) {
			r.a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		}
	}))
	items, err := f.Load(c.Request().Context())
	if r.unauthorized(err) {
		return r.a.unauthorized(c)
	}
	return r.renderList(c, items, crit)
}

func (r *resourceDef[T]) handleExport(c echo.Context) error {
	tr := r.a.tr(c)
	crit := lfm.ParseCriteria(c.QueryParams(), r.extraNames()...)
	items, err := r.listAll(c.Request().Context())
	if r.unauthorized(err) {
		return r.a.unauthorized(c)
	}
	if err != nil {
		logger(c).WithError(err).WithField("resource", r.name).Warn("export failed")
		r.a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		return c.Redirect(http.StatusSeeOther, r.filterURL(crit))
	}
	visible, _ := r.filtered(items, crit)

	table := export.Table{
		Sheet:       tr.T("Resource." + r.name),
		RightToLeft: tr.Dir() == "rtl",
	}
	for _, col := range r.columns {
		table.Headers = append(table.Headers, tr.T("Field."+col.name))
	}
	for _, item := range visible {
		cells := make([]string, 0, len(r.columns))
		for _, col := range r.columns {
			cells = append(cells, cellText(tr, col.cell(item)))
		}
		table.Rows = append(table.Rows, cells)
	}

	filename := fmt.Sprintf("%s-%s.xlsx", r.name, time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteXLSX(c.Response(), table)
}

// cellText flattens a listing cell for export.
func cellText(tr *locale.Translator, cell views.Cell) string {
	switch {
	case cell.Status != "":
		return tr.T("Status." + cell.Status)
	case cell.Flag != nil:
		if *cell.Flag {
			return tr.T("Filter.Yes")
		}
		return tr.T("Filter.No")
	case cell.Link != "":
		return cell.Link
	case cell.Image != "":
		return cell.Image
	}
	return cell.Text
}

func (r *resourceDef[T]) renderForm(c echo.Context, code int, id api.ID, vals url.Values, errs map[string]string) error {
	tr := r.a.tr(c)
	editing := id != ""
	fv := views.FormView{
		Resource: r.name,
		Base:     r.base(),
		Editing:  editing,
		ID:       id.String(),
		Fields:   buildFields(c.Request().Context(), tr, r.fields, vals, errs),
	}
	if editing {
		fv.Title = tr.T("Admin.EditTitle", "Resource", tr.T("Resource."+r.name))
		fv.Action = r.itemURL(id)
		fv.DeleteURL = r.itemURL(id) + "delete/"
		if r.name == "products" {
			fv.Product = r.a.productExtrasView(c, id)
		}
	} else {
		fv.Title = tr.T("Admin.NewTitle", "Resource", tr.T("Resource."+r.name))
		fv.Action = r.base()
	}
	return r.a.render(c, code, "admin_form", views.PageMeta{Title: fv.Title}, fv)
}

func (r *resourceDef[T]) handleNew(c echo.Context) error {
	return r.renderForm(c, http.StatusOK, "", r.a.binder.encode(r.initial()), nil)
}

func (r *resourceDef[T]) deriveSlug(v *T, editing bool) {
	if r.slug == nil {
		return
	}
	r.slug.set(v, DeriveSlug(r.slug.title(*v), r.slug.get(*v), editing))
}

func (r *resourceDef[T]) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()
	tr := r.a.tr(c)
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	vals := formValues(params, r.fields)

	v := r.initial()
	zeroFields(&v, checkboxNames(r.fields))
	errs := r.a.binder.bind(&v, vals, tr, fieldNames(r.fields)...)
	if len(errs) == 0 {
		r.deriveSlug(&v, false)
		errs = r.a.binder.check(&v, tr, fieldNames(r.fields)...)
	}
	if len(errs) > 0 {
		r.a.toast(c, lfm.ToastError, "Toast.FixErrors")
		return r.renderForm(c, http.StatusUnprocessableEntity, "", vals, errs)
	}

	list := lfm.NewListFetcher(r.listAll)
	d := lfm.NewDispatcher(list, r.a.notifier(c), r.messages(tr))
	res, err := d.Create(ctx, func(ctx context.Context) error {
		_, err := r.res.Create(ctx, v)
		return err
	})
	if r.unauthorized(err) {
		return r.a.unauthorized(c)
	}
	if err != nil {
		logger(c).WithError(err).WithField("resource", r.name).Warn("create failed")
		return r.renderForm(c, failureStatus(err), "", vals, nil)
	}
	r.afterMutation()
	if res.ReloadErr != nil {
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	return r.renderList(c, list.Data(), lfm.ParseCriteria(nil))
}

// loadItem fetches one record. A missing record or failed read toasts and
// redirects to the listing; ok is false when the response is written.
func (r *resourceDef[T]) loadItem(c echo.Context, f *lfm.Fetcher[*T]) (T, bool, error) {
	var zero T
	item, err := f.Load(c.Request().Context())
	switch {
	case err == nil && item != nil:
		return *item, true, nil
	case r.unauthorized(err):
		return zero, false, r.a.unauthorized(c)
	case errors.Is(err, api.ErrNotFound):
		r.a.toast(c, lfm.ToastError, "Toast.NotFound")
	default:
		logger(c).WithError(err).WithField("resource", r.name).Warn("load failed")
		r.a.toast(c, lfm.ToastError, "Toast.LoadFailed")
	}
	return zero, false, c.Redirect(http.StatusSeeOther, r.base())
}

func (r *resourceDef[T]) itemFetcher(id api.ID) *lfm.Fetcher[*T] {
	return lfm.NewItemFetcher(func(ctx context.Context) (T, error) {
		return r.res.Get(ctx, id)
	})
}

func (r *resourceDef[T]) handleEdit(c echo.Context) error {
	id := api.ID(c.Param("id"))
	item, ok, err := r.loadItem(c, r.itemFetcher(id))
	if !ok {
		return err
	}
	return r.renderForm(c, http.StatusOK, id, r.a.binder.encode(item), nil)
}

// overlay returns base with the submitted values laid over it.
func overlay(base, submitted url.Values) url.Values {
	out := make(url.Values, len(base)+len(submitted))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range submitted {
		out[k] = v
	}
	return out
}

func (r *resourceDef[T]) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	tr := r.a.tr(c)
	id := api.ID(c.Param("id"))
	fetch := r.itemFetcher(id)
	before, ok, err := r.loadItem(c, fetch)
	if !ok {
		return err
	}
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	vals := formValues(params, r.fields)
	names := fieldNames(r.fields)

	after := before
	zeroFields(&after, names)
	errs := r.a.binder.bind(&after, vals, tr, names...)
	if len(errs) == 0 {
		r.deriveSlug(&after, true)
		errs = r.a.binder.check(&after, tr, names...)
	}
	shown := overlay(r.a.binder.encode(before), vals)
	if len(errs) > 0 {
		r.a.toast(c, lfm.ToastError, "Toast.FixErrors")
		return r.renderForm(c, http.StatusUnprocessableEntity, id, shown, errs)
	}

	d := lfm.NewDispatcher(fetch, r.a.notifier(c), r.messages(tr))
	res, err := d.Update(ctx, func(ctx context.Context) error {
		_, err := r.res.Update(ctx, id, before, after)
		return err
	})
	if r.unauthorized(err) {
		return r.a.unauthorized(c)
	}
	if err != nil {
		logger(c).WithError(err).WithField("resource", r.name).Warn("update failed")
		return r.renderForm(c, failureStatus(err), id, shown, nil)
	}
	r.afterMutation()
	current := after
	if res.ReloadErr == nil {
		if reloaded := fetch.Data(); reloaded != nil {
			current = *reloaded
		}
	}
	return r.renderForm(c, http.StatusOK, id, r.a.binder.encode(current), nil)
}

func (r *resourceDef[T]) handleDeleteConfirm(c echo.Context) error {
	tr := r.a.tr(c)
	id := api.ID(c.Param("id"))
	return r.a.render(c, http.StatusOK, "admin_confirm", views.PageMeta{Title: tr.T("Confirm.DeleteTitle")}, views.ConfirmView{
		Title:   tr.T("Confirm.DeleteTitle"),
		Message: tr.T("Confirm.DeleteMessage"),
		Action:  r.itemURL(id) + "delete/",
		Back:    r.base(),
		Danger:  true,
	})
}

func (r *resourceDef[T]) handleDelete(c echo.Context) error {
	tr := r.a.tr(c)
	id := api.ID(c.Param("id"))
	list := lfm.NewListFetcher(r.listAll)
	d := lfm.NewDispatcher(list, r.a.notifier(c), r.messages(tr))
	res, err := d.Delete(c.Request().Context(), c.FormValue("confirm") == "yes", func(ctx context.Context) error {
		return r.res.Delete(ctx, id)
	})
	switch {
	case errors.Is(err, lfm.ErrUnconfirmed):
		return c.Redirect(http.StatusSeeOther, r.itemURL(id)+"delete/")
	case r.unauthorized(err):
		return r.a.unauthorized(c)
	case err != nil:
		logger(c).WithError(err).WithField("resource", r.name).Warn("delete failed")
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	r.afterMutation()
	if res.ReloadErr != nil {
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	return r.renderList(c, list.Data(), lfm.ParseCriteria(nil))
}

// transition reads the target status and checks it against the record's
// current one.
func (r *resourceDef[T]) transition(c echo.Context, item T) (api.Status, bool) {
	to := api.Status(c.QueryParam("to"))
	if to == "" {
		to = api.Status(c.FormValue("to"))
	}
	return to, r.workflow.Allows(r.status(item), to)
}

func (r *resourceDef[T]) handleStatusConfirm(c echo.Context) error {
	tr := r.a.tr(c)
	id := api.ID(c.Param("id"))
	item, ok, err := r.loadItem(c, r.itemFetcher(id))
	if !ok {
		return err
	}
	to, allowed := r.transition(c, item)
	if !allowed {
		r.a.toast(c, lfm.ToastError, "Toast.InvalidTransition")
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	label := tr.T("Status." + string(to))
	return r.a.render(c, http.StatusOK, "admin_confirm", views.PageMeta{Title: tr.T("Confirm.StatusTitle")}, views.ConfirmView{
		Title:   tr.T("Confirm.StatusTitle"),
		Message: tr.T("Confirm.StatusMessage", "From", tr.T("Status."+string(r.status(item))), "To", label),
		Action:  r.itemURL(id) + "status/",
		Back:    r.base(),
		Hidden:  map[string]string{"to": string(to)},
	})
}

func (r *resourceDef[T]) handleStatus(c echo.Context) error {
	tr := r.a.tr(c)
	id := api.ID(c.Param("id"))
	before, ok, err := r.loadItem(c, r.itemFetcher(id))
	if !ok {
		return err
	}
	to, allowed := r.transition(c, before)
	if !allowed {
		r.a.toast(c, lfm.ToastError, "Toast.InvalidTransition")
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	if c.FormValue("confirm") != "yes" {
		return c.Redirect(http.StatusSeeOther, r.itemURL(id)+"status/?to="+url.QueryEscape(string(to)))
	}
	after := before
	r.setStatus(&after, to)

	msgs := r.messages(tr)
	msgs.Updated = tr.T("Toast.StatusChanged", "Status", tr.T("Status."+string(to)))
	list := lfm.NewListFetcher(r.listAll)
	d := lfm.NewDispatcher(list, r.a.notifier(c), msgs)
	res, err := d.Update(c.Request().Context(), func(ctx context.Context) error {
		_, err := r.res.Update(ctx, id, before, after)
		return err
	})
	if r.unauthorized(err) {
		return r.a.unauthorized(c)
	}
	if err != nil {
		logger(c).WithError(err).WithField("resource", r.name).Warn("status change failed")
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	r.afterMutation()
	if res.ReloadErr != nil {
		return c.Redirect(http.StatusSeeOther, r.base())
	}
	return r.renderList(c, list.Data(), lfm.ParseCriteria(nil))
}

func (r *resourceDef[T]) card(ctx context.Context, tr *locale.Translator) views.DashboardCard {
	card := views.DashboardCard{Title: tr.T("Resource." + r.name), URL: r.base()}
	items, err := r.listAll(ctx)
	if err != nil {
		card.Err = true
		return card
	}
	card.Total = len(items)
	if r.workflow != nil {
		for _, s := range r.workflow.States() {
			card.Statuses = append(card.Statuses, views.FilterOption{
				Value: string(s),
				Label: tr.T("Status." + string(s)),
				Count: lfm.Count(items, lfm.StatusIs(r.status, string(s))),
				URL:   r.base() + "?status=" + string(s),
			})
		}
	}
	return card
}

func (a *App) registerResources(g *echo.Group) {
	if a.resources == nil {
		a.resources = a.adminResources()
	}
	for _, r := range a.resources {
		r.register(g)
	}
}
