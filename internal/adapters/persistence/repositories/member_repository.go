package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

// memberRepository implements MemberRepository over members.xml
type memberRepository struct {
	doc *document[domain.Members, *domain.Members]
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(store *xmlstore.Store, validator *xmlschema.Validator) MemberRepository {
	return &memberRepository{doc: &document[domain.Members, *domain.Members]{
		store:     store,
		validator: validator,
		fileName:  MembersFile,
		schema:    xmlschema.Members,
	}}
}

func (r *memberRepository) Load(ctx context.Context) (*domain.Members, error) {
	return r.doc.load(ctx)
}

func (r *memberRepository) Save(ctx context.Context, members *domain.Members) error {
	return r.doc.save(ctx, members)
}

// Validate checks members against the schema without writing
func (r *memberRepository) Validate(members *domain.Members) error {
	return r.doc.validate(members)
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id int) (*domain.Member, error) {
	members, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	i := members.Index(id)
	if i < 0 {
		return nil, domain.ErrMemberNotFound
	}
	return &members.Items[i], nil
}
