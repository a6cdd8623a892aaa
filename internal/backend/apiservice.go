package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/jo-hoe/gogallery/internal/backend/imageprocessing"
	"github.com/jo-hoe/gogallery/internal/backend/submission"
	"github.com/jo-hoe/gogallery/internal/common"
	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/labstack/echo/v4"
)

// Multipart part names accepted for each image, in lookup order.
var (
	artworkPartNames  = []string{"image", submission.FieldArtwork}
	personalPartNames = []string{submission.FieldPersonal, "imageSelf"}
)

var errMalformedUpload = errors.New("malformed multipart body")

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type submitResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type recordsQuery struct {
	Sort    string `query:"sort"`
	Country string `query:"country" validate:"max=256"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	e.GET("/probe", s.probeHandler)
	e.POST("/submit", s.submitHandler)
	e.GET("/records", s.recordsHandler)
	e.GET("/countries", s.countriesHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	if err := s.coreService.Ping(ctx.Request().Context()); err != nil {
		slog.Error("probeHandler: database not reachable", "status", http.StatusServiceUnavailable, "error", err)
		return ctx.String(http.StatusServiceUnavailable, "Database not reachable")
	}
	return ctx.String(http.StatusOK, "API Service is running")
}

func (s *APIService) submitHandler(ctx echo.Context) error {
	form := submission.Form{
		Name:        ctx.FormValue(submission.FieldName),
		Country:     ctx.FormValue(submission.FieldCountry),
		Website:     ctx.FormValue(submission.FieldWebsite),
		Description: ctx.FormValue("description"),
		Captcha:     ctx.FormValue(submission.FieldCaptcha),
	}

	var err error
	if form.Artwork, err = s.readUpload(ctx, artworkPartNames); err != nil {
		return s.submitError(ctx, err)
	}
	if form.Personal, err = s.readUpload(ctx, personalPartNames); err != nil {
		return s.submitError(ctx, err)
	}

	id, err := s.coreService.Submit(ctx.Request().Context(), form)
	if err != nil {
		return s.submitError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, submitResponse{Success: true, ID: id})
}

// readUpload returns the first non-empty file part found under names. A request without the
// part, or without a multipart body at all, yields a zero Upload. Size limits are left to the
// normalizer so that validation failures are reported first.
func (s *APIService) readUpload(ctx echo.Context, names []string) (submission.Upload, error) {
	for _, name := range names {
		header, err := ctx.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if err != nil {
			return submission.Upload{}, fmt.Errorf("%w: file part %s: %v", errMalformedUpload, name, err)
		}
		if header.Size == 0 {
			continue
		}
		data, err := readFile(header)
		if err != nil {
			return submission.Upload{}, fmt.Errorf("failed to read file part %s: %w", name, err)
		}
		return submission.NewUpload(header.Filename, data), nil
	}
	return submission.Upload{}, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close uploaded file reader", "error", cerr, "filename", header.Filename)
		}
	}()
	return io.ReadAll(src)
}

// submitError maps pipeline failures to responses. Only validation failures expose details.
func (s *APIService) submitError(ctx echo.Context, err error) error {
	var validationErr *common.ValidationError
	var decodeErr *common.ImageDecodeError
	var storageErr *common.StorageError

	switch {
	case errors.As(err, &validationErr):
		return ctx.JSON(http.StatusBadRequest, submitResponse{Message: validationErr.Error()})
	case errors.Is(err, errMalformedUpload):
		slog.Warn("submitHandler: rejected malformed upload", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, submitResponse{Message: "Invalid multipart form"})
	case errors.Is(err, imageprocessing.ErrImageTooLarge):
		slog.Warn("submitHandler: image too large", "status", http.StatusRequestEntityTooLarge, "error", err)
		return ctx.JSON(http.StatusRequestEntityTooLarge, submitResponse{Error: "Image too large"})
	case errors.As(err, &decodeErr):
		slog.Error("submitHandler: failed to process image",
			"status", http.StatusInternalServerError, "role", decodeErr.Role, "error", err)
		return ctx.JSON(http.StatusInternalServerError, submitResponse{Error: "Failed to process image"})
	case errors.As(err, &storageErr):
		slog.Error("submitHandler: failed to store submission",
			"status", http.StatusInternalServerError, "op", storageErr.Op, "error", err)
		return ctx.JSON(http.StatusInternalServerError, submitResponse{Error: "Failed to save submission"})
	default:
		slog.Error("submitHandler: failed to handle submission", "status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, submitResponse{Error: "Failed to process submission"})
	}
}

func (s *APIService) recordsHandler(ctx echo.Context) error {
	var query recordsQuery
	if err := ctx.Bind(&query); err != nil {
		slog.Warn("recordsHandler: failed to bind query", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid query parameters"})
	}
	if err := ctx.Validate(&query); err != nil {
		slog.Warn("recordsHandler: rejected query", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid query parameters"})
	}

	records, err := s.coreService.ListRecords(ctx.Request().Context(), query.Sort, query.Country)
	if err != nil {
		slog.Error("recordsHandler: failed to list records",
			"status", http.StatusInternalServerError, "sort", query.Sort, "country", query.Country, "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to load records"})
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) countriesHandler(ctx echo.Context) error {
	countries, err := s.coreService.Countries(ctx.Request().Context())
	if err != nil {
		slog.Error("countriesHandler: failed to list countries", "status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to load countries"})
	}
	return ctx.JSON(http.StatusOK, countries)
}
