package waitlist

import (
	"bytes"
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
)

const RegistryContentType = "application/yaml"

// LoadScamRegistry picks the registry source: a local file, then an object in storage,
// then the built-in lists. storage may be nil when object storage is not configured.
func LoadScamRegistry(ctx context.Context, cfg *config.IntakeConfig, storage interfaces.StorageService, log logger.Logger) (*intake.ScamRegistry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Waitlist.LoadScamRegistry")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if cfg == nil {
		cfg = &config.IntakeConfig{}
	}

	switch {
	case cfg.ScamRegistryPath != "":
		registry, err := intake.LoadScamRegistryFile(cfg.ScamRegistryPath)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		log.Infof("Loaded scam registry from %s: %s", cfg.ScamRegistryPath, registry)
		return registry, nil

	case cfg.ScamRegistryObjectKey != "":
		if storage == nil {
			err := errors.New("scam registry object key set but object storage is not configured")
			tracing.TraceErr(span, err)
			return nil, err
		}
		content, err := storage.Download(ctx, cfg.ScamRegistryObjectKey)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "failed to download scam registry")
		}
		registry, err := intake.LoadScamRegistry(bytes.NewReader(content))
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		log.Infof("Loaded scam registry from object %s: %s", cfg.ScamRegistryObjectKey, registry)
		return registry, nil
	}

	registry := intake.DefaultScamRegistry()
	log.Infof("Using built-in scam registry: %s", registry)
	return registry, nil
}

// PublishScamRegistry validates a registry document and uploads it under key.
func PublishScamRegistry(ctx context.Context, storage interfaces.StorageService, key string, content []byte) (*intake.ScamRegistry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Waitlist.PublishScamRegistry")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	registry, err := intake.LoadScamRegistry(bytes.NewReader(content))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := storage.Upload(ctx, key, content, RegistryContentType); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return registry, nil
}
