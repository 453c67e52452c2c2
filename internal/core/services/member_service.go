package services

import (
	"context"
	"log"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/core/domain"
)

// MemberService handles member business logic
type MemberService struct {
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
	locker        repositories.Locker
	today         func() domain.Date
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repositories.MemberRepository,
	borrowingRepo repositories.BorrowingRepository,
	locker repositories.Locker,
) *MemberService {
	return &MemberService{
		memberRepo:    memberRepo,
		borrowingRepo: borrowingRepo,
		locker:        locker,
		today:         domain.Today,
	}
}

// List returns every member
func (s *MemberService) List(ctx context.Context) ([]domain.Member, error) {
	members, err := s.memberRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return members.Items, nil
}

// GetByID gets a member by ID
func (s *MemberService) GetByID(ctx context.Context, id int) (*domain.Member, error) {
	return s.memberRepo.GetByID(ctx, id)
}

// Create registers a member as Active from today
func (s *MemberService) Create(ctx context.Context, input *MemberInput) (*domain.Member, error) {
	var created domain.Member

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		members, err := s.memberRepo.Load(ctx)
		if err != nil {
			return err
		}

		member := domain.Member{ID: members.NextID()}
		input.apply(&member)
		member.MembershipDate = s.today()
		member.Status = domain.MemberStatusActive
		members.Items = append(members.Items, member)

		if err := s.memberRepo.Save(ctx, members); err != nil {
			return err
		}
		created = member
		return nil
	}, repositories.MembersFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member created: %d %s", created.ID, created.FullName())
	return &created, nil
}

// Update replaces contact details and status. MembershipDate is kept.
func (s *MemberService) Update(ctx context.Context, id int, input *MemberInput) (*domain.Member, error) {
	var updated domain.Member

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		members, err := s.memberRepo.Load(ctx)
		if err != nil {
			return err
		}

		i := members.Index(id)
		if i < 0 {
			return domain.ErrMemberNotFound
		}
		input.apply(&members.Items[i])

		if err := s.memberRepo.Save(ctx, members); err != nil {
			return err
		}
		updated = members.Items[i]
		return nil
	}, repositories.MembersFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member updated: %d", id)
	return &updated, nil
}

// Delete removes a member who has no book out
func (s *MemberService) Delete(ctx context.Context, id int) error {
	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		members, err := s.memberRepo.Load(ctx)
		if err != nil {
			return err
		}

		i := members.Index(id)
		if i < 0 {
			return domain.ErrMemberNotFound
		}

		borrowings, err := s.borrowingRepo.Load(ctx)
		if err != nil {
			return err
		}
		for _, b := range borrowings.Items {
			if b.MemberID == id && b.IsActive() {
				return domain.ErrMemberHasActiveBorrowings
			}
		}

		members.Items = append(members.Items[:i], members.Items[i+1:]...)
		return s.memberRepo.Save(ctx, members)
	}, repositories.MembersFile, repositories.BorrowingsFile)
	if err != nil {
		return err
	}

	log.Printf("✅ Member deleted: %d", id)
	return nil
}
