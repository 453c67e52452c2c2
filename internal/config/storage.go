package config

import (
	"fmt"
	"log"
	"os"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/adapters/persistence/xmltransform"
)

// Storage bundles the XML persistence layer built from DataConfig
type Storage struct {
	Registry  *xmlschema.Registry
	Validator *xmlschema.Validator
	Store     *xmlstore.Store
	Engine    *xmltransform.Engine
}

// OpenStorage loads every schema and DTD and opens the data root.
// A missing schema, DTD or transforms folder is fatal.
func OpenStorage(cfg *Config) (*Storage, error) {
	registry, err := xmlschema.NewRegistry(cfg.Data.SchemasDir, cfg.Data.DTDsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	if _, err := os.Stat(cfg.Data.TransformsDir); err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to open transforms: %w", err)
	}

	store, err := xmlstore.New(cfg.Data.Dir, xmlstore.WithExpiry(cfg.Data.CacheSliding, cfg.Data.CacheAbsolute))
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	validator := xmlschema.NewValidator(registry)

	log.Printf("✅ XML storage ready [%s, schemas: %v, cache: %s/%s]",
		cfg.Data.Dir,
		registry.Names(),
		cfg.Data.CacheSliding,
		cfg.Data.CacheAbsolute,
	)

	return &Storage{
		Registry:  registry,
		Validator: validator,
		Store:     store,
		Engine:    xmltransform.New(cfg.Data.TransformsDir, validator),
	}, nil
}

// Close releases the compiled schemas
func (s *Storage) Close() {
	if s == nil || s.Registry == nil {
		return
	}
	s.Registry.Close()
}

// HealthCheck reports whether the data root is still reachable
func (s *Storage) HealthCheck() error {
	if s == nil || s.Store == nil {
		return fmt.Errorf("storage not initialized")
	}
	info, err := os.Stat(s.Store.Root())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.Store.Root())
	}
	return nil
}
