package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jo-hoe/gogallery/internal/backend/database"
	"github.com/jo-hoe/gogallery/internal/backend/imageprocessing"
	"github.com/jo-hoe/gogallery/internal/backend/submission"
)

const (
	roleArtwork  = "artwork"
	rolePersonal = "personal"
)

// CoreService runs the submission pipeline (validate, normalize, insert) and the read paths.
// Its collaborators are created once at startup and shared by all requests.
type CoreService struct {
	config     *ServiceConfig
	validator  *submission.Validator
	normalizer *imageprocessing.Normalizer
	store      database.RecordStore
	match      database.CountryMatch
}

// NewCoreService opens the configured record store and builds the pipeline around it.
func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	store, err := getRecordStore(ctx, config)
	if err != nil {
		return nil, err
	}
	service, err := NewCoreServiceWithStore(config, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return service, nil
}

// NewCoreServiceWithStore builds the pipeline around an already opened store.
// The service takes ownership of the store and closes it in Close.
func NewCoreServiceWithStore(config *ServiceConfig, store database.RecordStore) (*CoreService, error) {
	normalizer, err := imageprocessing.NewNormalizer(config.NormalizerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image normalizer: %w", err)
	}
	return &CoreService{
		config:     config,
		validator:  submission.NewValidator(config.ValidationRules()),
		normalizer: normalizer,
		store:      store,
		match:      config.CountryMatch(),
	}, nil
}

func getRecordStore(ctx context.Context, config *ServiceConfig) (database.RecordStore, error) {
	store, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString, config.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return store, nil
}

// Submit validates the form, normalizes its images and stores the record.
// It returns a *common.ValidationError, a *common.ImageDecodeError (possibly joined for both
// images) or a *common.StorageError on failure.
func (service *CoreService) Submit(ctx context.Context, form submission.Form) (int64, error) {
	request, err := service.validator.Validate(form)
	if err != nil {
		return 0, err
	}

	inputs := make([]imageprocessing.Input, 0, 2)
	if request.Artwork.Present {
		inputs = append(inputs, imageprocessing.Input{Role: roleArtwork, Data: request.Artwork.Data})
	}
	if request.Personal.Present {
		inputs = append(inputs, imageprocessing.Input{Role: rolePersonal, Data: request.Personal.Data})
	}
	outputs, err := service.normalizer.NormalizeAll(inputs...)
	if err != nil {
		return 0, err
	}

	record := database.NewRecord{
		Name:        request.Name,
		Country:     request.Country,
		Website:     request.Website,
		Description: request.Description,
	}
	for _, output := range outputs {
		dataURI := output.DataURI
		switch output.Role {
		case roleArtwork:
			record.ArtworkImage = dataURI
		case rolePersonal:
			record.PersonalImage = &dataURI
		}
	}

	id, err := service.store.InsertRecord(ctx, record)
	if err != nil {
		return 0, err
	}
	slog.Info("submission stored", "id", id, "country", record.Country, "images", len(outputs))
	return id, nil
}

// ListRecords returns every record matching country, ordered by sort. Unknown sort values
// fall back to newest first.
func (service *CoreService) ListRecords(ctx context.Context, sort, country string) ([]*database.Record, error) {
	return service.store.ListRecords(ctx, database.RecordQuery{
		Sort:    database.ParseSortKey(sort),
		Country: strings.TrimSpace(country),
		Match:   service.match,
	})
}

// Countries returns each stored country once, in ascending order.
func (service *CoreService) Countries(ctx context.Context) ([]string, error) {
	countries, err := service.store.DistinctCountries(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(countries)
	return countries, nil
}

func (service *CoreService) Ping(ctx context.Context) error {
	return service.store.Ping(ctx)
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Close() error {
	return service.store.Close()
}
