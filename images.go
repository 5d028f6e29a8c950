package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/views"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// uploadSpec constrains one multipart file input.
type uploadSpec struct {
	field    string
	required bool
	maxSize  int64
	allowed  []string
}

// readUpload reads and sniffs the file in spec.field. On rejection it
// returns the message id to show against the field.
func readUpload(c echo.Context, spec uploadSpec) (api.File, string) {
	fh, err := c.FormFile(spec.field)
	if err != nil {
		if spec.required {
			return api.File{}, "Validation.required"
		}
		return api.File{}, ""
	}
	if fh.Size > spec.maxSize {
		return api.File{}, "Validation.fileSize"
	}
	src, err := fh.Open()
	if err != nil {
		return api.File{}, "Validation.invalid"
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, spec.maxSize+1))
	if err != nil || int64(len(data)) > spec.maxSize {
		return api.File{}, "Validation.fileSize"
	}
	mt := mimetype.Detect(data)
	if !allowedType(mt, spec.allowed) {
		return api.File{}, "Validation.fileType"
	}
	return api.File{
		Field:       spec.field,
		Name:        fh.Filename,
		ContentType: mt.String(),
		Data:        data,
	}, ""
}

func allowedType(mt *mimetype.MIME, allowed []string) bool {
	for _, a := range allowed {
		if mt.Is(a) {
			return true
		}
	}
	return false
}

// processImage decodes an uploaded image, resizes it to maxImageWidth
// when wider, and re-encodes it as JPEG for the backend.
func processImage(src []byte, originalName string) (api.File, error) {
	if mt := mimetype.Detect(src); !allowedType(mt, imageTypes) {
		return api.File{}, fmt.Errorf("unsupported image type %s", mt.String())
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return api.File{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Resize if wider than max
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return api.File{}, fmt.Errorf("encode jpeg: %w", err)
	}
	name := slugifyFilename(originalName)
	if name == "" {
		name = "image"
	}
	return api.File{
		Field:       "image",
		Name:        name + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return Slugify(base)
}

func (a *App) registerProductExtras(g *echo.Group) {
	g.POST("/products/:id/images/", a.handleProductImageUpload)
	g.GET("/products/:id/images/:child/delete/", a.handleProductChildConfirm("images"))
	g.POST("/products/:id/images/:child/delete/", a.handleProductImageDelete)
	g.POST("/products/:id/features/", a.handleProductFeatureAdd)
	g.GET("/products/:id/features/:child/delete/", a.handleProductChildConfirm("features"))
	g.POST("/products/:id/features/:child/delete/", a.handleProductFeatureDelete)
}

func productEditURL(id api.ID) string {
	return "/admin/products/" + views.PathEscape(id.String()) + "/"
}

// productMutation runs call through a Dispatcher bound to the product
// record, then returns to the product edit page.
func (a *App) productMutation(c echo.Context, op lfm.Op, call func(ctx context.Context) error) error {
	tr := a.tr(c)
	id := api.ID(c.Param("id"))
	reload := lfm.NewItemFetcher(func(ctx context.Context) (api.Product, error) {
		return a.Backend.Products.Get(ctx, id)
	})
	d := lfm.NewDispatcher(reload, a.notifier(c), lfm.Messages{
		Created: tr.T("Toast.Created"),
		Updated: tr.T("Toast.Updated"),
		Deleted: tr.T("Toast.Deleted"),
		Failed:  tr.T("Toast.Failed"),
	})
	ctx := c.Request().Context()
	var err error
	switch op {
	case lfm.OpCreate:
		_, err = d.Create(ctx, call)
	case lfm.OpDelete:
		_, err = d.Delete(ctx, c.FormValue("confirm") == "yes", call)
	default:
		_, err = d.Update(ctx, call)
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return a.unauthorized(c)
	}
	if errors.Is(err, lfm.ErrUnconfirmed) {
		return c.Redirect(http.StatusSeeOther, productEditURL(id))
	}
	if err != nil {
		logger(c).WithError(err).WithField("product", id).Warn("product mutation failed")
	} else {
		a.Catalog.Invalidate("products")
	}
	return c.Redirect(http.StatusSeeOther, productEditURL(id))
}

func (a *App) handleProductImageUpload(c echo.Context) error {
	id := api.ID(c.Param("id"))
	raw, msgID := readUpload(c, uploadSpec{field: "image", required: true, maxSize: maxUploadSize, allowed: imageTypes})
	if msgID != "" {
		a.toast(c, lfm.ToastError, "Toast.InvalidImage")
		return c.Redirect(http.StatusSeeOther, productEditURL(id))
	}
	file, err := processImage(raw.Data, raw.Name)
	if err != nil {
		logger(c).WithError(err).Info("rejected product image")
		a.toast(c, lfm.ToastError, "Toast.InvalidImage")
		return c.Redirect(http.StatusSeeOther, productEditURL(id))
	}
	fields := map[string]string{"alt": strings.TrimSpace(c.FormValue("alt"))}
	return a.productMutation(c, lfm.OpCreate, func(ctx context.Context) error {
		_, err := a.Backend.ProductImages(id).CreateMultipart(ctx, fields, file)
		return err
	})
}

func (a *App) handleProductImageDelete(c echo.Context) error {
	id, child := api.ID(c.Param("id")), api.ID(c.Param("child"))
	return a.productMutation(c, lfm.OpDelete, func(ctx context.Context) error {
		return a.Backend.ProductImages(id).Delete(ctx, child)
	})
}

func (a *App) handleProductFeatureAdd(c echo.Context) error {
	id := api.ID(c.Param("id"))
	tr := a.tr(c)
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	feature := api.ProductFeature{ProductID: id}
	if errs := a.binder.bind(&feature, params, tr, "title", "description"); len(errs) > 0 {
		a.toast(c, lfm.ToastError, "Toast.FixErrors")
		return c.Redirect(http.StatusSeeOther, productEditURL(id))
	}
	return a.productMutation(c, lfm.OpCreate, func(ctx context.Context) error {
		_, err := a.Backend.ProductFeatures(id).Create(ctx, feature)
		return err
	})
}

func (a *App) handleProductFeatureDelete(c echo.Context) error {
	id, child := api.ID(c.Param("id")), api.ID(c.Param("child"))
	return a.productMutation(c, lfm.OpDelete, func(ctx context.Context) error {
		return a.Backend.ProductFeatures(id).Delete(ctx, child)
	})
}

// handleProductChildConfirm asks before deleting a product image or feature.
func (a *App) handleProductChildConfirm(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		tr := a.tr(c)
		id := api.ID(c.Param("id"))
		back := productEditURL(id)
		return a.render(c, http.StatusOK, "admin_confirm", views.PageMeta{Title: tr.T("Confirm.DeleteTitle")}, views.ConfirmView{
			Title:   tr.T("Confirm.DeleteTitle"),
			Message: tr.T("Confirm.DeleteMessage"),
			Action:  back + kind + "/" + views.PathEscape(c.Param("child")) + "/delete/",
			Back:    back,
			Danger:  true,
		})
	}
}

// productExtrasView lists the gallery and features shown under the product form.
func (a *App) productExtrasView(c echo.Context, id api.ID) *views.ProductExtras {
	images, features := a.productExtras(c, api.Product{ID: id})
	return &views.ProductExtras{Images: images, Features: features, Base: productEditURL(id)}
}
