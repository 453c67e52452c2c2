package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

// document is one collection file, optionally gated by a schema
type document[T any, PT interface {
	*T
	domain.Collection
	Clone() *T
}] struct {
	store     *xmlstore.Store
	validator *xmlschema.Validator
	fileName  string
	schema    string
}

// load returns the stored collection or an empty one when the file is missing
func (d *document[T, PT]) load(ctx context.Context) (PT, error) {
	c, err := xmlstore.Load[T, PT](ctx, d.store, d.fileName)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = PT(new(T))
	}
	return c, nil
}

// validate checks c against the document schema, if any
func (d *document[T, PT]) validate(c PT) error {
	if d.validator == nil || d.schema == "" {
		return nil
	}
	return d.validator.ValidateCollection(c, d.schema)
}

// save validates the full collection then rewrites the file
func (d *document[T, PT]) save(ctx context.Context, c PT) error {
	if err := d.validate(c); err != nil {
		return err
	}
	return d.store.Save(ctx, c, d.fileName)
}
