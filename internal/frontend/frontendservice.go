package frontend

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/gogallery/internal/backend/database"
	"github.com/jo-hoe/gogallery/internal/backend/imageprocessing"
	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName    = "index.html"
	galleryPartName = "gallery.html"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type countryOption struct {
	Value    string
	Selected bool
}

type recordView struct {
	ID          int64
	Name        string
	Country     string
	Website     string
	Description string
	Artwork     template.URL
	Personal    template.URL
	CreatedAt   string
}

type galleryData struct {
	Records []recordView
}

type pageData struct {
	Gallery        galleryData
	Sort           string
	Country        string
	SortOptions    []sortOption
	Countries      []countryOption
	CaptchaEnabled bool
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html, keeping the query
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	target := "/" + MainPageName
	if query := ctx.QueryString(); query != "" {
		target += "?" + query
	}
	return ctx.Redirect(http.StatusMovedPermanently, target)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/htmx/records", service.htmxRecordsHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	sort := string(database.ParseSortKey(ctx.QueryParam("sort")))
	country := strings.TrimSpace(ctx.QueryParam("country"))

	gallery, err := service.buildGallery(ctx.Request().Context(), sort, country)
	if err != nil {
		slog.Error("indexHandler: failed to list records", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load gallery")
	}
	countries, err := service.coreService.Countries(ctx.Request().Context())
	if err != nil {
		slog.Error("indexHandler: failed to list countries", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load gallery")
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, pageData{
		Gallery:        gallery,
		Sort:           sort,
		Country:        country,
		SortOptions:    sortOptions(sort),
		Countries:      countryOptions(countries, country),
		CaptchaEnabled: service.config.Submission.CaptchaEnabled,
	})
}

func (service *FrontendService) htmxRecordsHandler(ctx echo.Context) error {
	gallery, err := service.buildGallery(ctx.Request().Context(), ctx.QueryParam("sort"), ctx.QueryParam("country"))
	if err != nil {
		slog.Error("htmxRecordsHandler: failed to list records", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list records")
	}

	// Prevent caching so the latest submissions are always shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, galleryPartName, gallery)
}

func (service *FrontendService) buildGallery(ctx context.Context, sort, country string) (galleryData, error) {
	records, err := service.coreService.ListRecords(ctx, sort, country)
	if err != nil {
		return galleryData{}, err
	}
	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, toRecordView(r))
	}
	return galleryData{Records: views}, nil
}

func toRecordView(r *database.Record) recordView {
	view := recordView{
		ID:        r.ID,
		Name:      r.Name,
		Country:   r.Country,
		Website:   r.Website,
		Artwork:   imageURL(r.ArtworkImage),
		CreatedAt: r.CreatedAt.Format("2006-01-02"),
	}
	if r.Description != nil {
		view.Description = *r.Description
	}
	if r.PersonalImage != nil {
		view.Personal = imageURL(*r.PersonalImage)
	}
	return view
}

// imageURL marks a stored data URI as safe for an img src. Only URIs produced by the
// normalizer are trusted; anything else renders as an empty source.
func imageURL(dataURI string) template.URL {
	if _, err := imageprocessing.DecodeDataURI(dataURI); err != nil {
		return ""
	}
	return template.URL(dataURI)
}

func sortOptions(selected string) []sortOption {
	options := []sortOption{
		{Value: string(database.SortNewest), Label: "Newest first"},
		{Value: string(database.SortOldest), Label: "Oldest first"},
		{Value: string(database.SortNameAsc), Label: "Name A-Z"},
		{Value: string(database.SortNameDesc), Label: "Name Z-A"},
	}
	for i := range options {
		options[i].Selected = options[i].Value == selected
	}
	return options
}

func countryOptions(countries []string, selected string) []countryOption {
	options := make([]countryOption, 0, len(countries))
	for _, c := range countries {
		options = append(options, countryOption{Value: c, Selected: c == selected})
	}
	return options
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
