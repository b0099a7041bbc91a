package fulfillers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// Service manages the operators orders can be assigned to.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Fulfiller, error)
	List(ctx context.Context, caller visibility.Caller) ([]models.Fulfiller, error)
}

// RegisterInput adds a truck owner to the directory. ID is the operator's user id.
type RegisterInput struct {
	Actor       visibility.Caller
	ID          uuid.UUID
	DisplayName string
	Phone       *string
}

type service struct {
	repo Repository
}

// NewService wires the fulfiller directory.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillers repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Fulfiller, error) {
	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	if input.Actor.Role != enums.RoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can register fulfillers")
	}
	details := map[string]string{}
	if input.ID == uuid.Nil {
		details["id"] = "is required"
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		details["display_name"] = "is required"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fulfiller is invalid").WithDetails(details)
	}

	fulfiller := &models.Fulfiller{
		ID:          input.ID,
		Type:        enums.FulfillerTypeTruckOwner,
		DisplayName: name,
		Phone:       input.Phone,
		Active:      true,
	}
	if err := s.repo.Create(ctx, fulfiller); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "fulfiller already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register fulfiller")
	}
	return fulfiller, nil
}

func (s *service) List(ctx context.Context, caller visibility.Caller) ([]models.Fulfiller, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if caller.Role != enums.RoleSuperAdmin && caller.Role != enums.RoleManufacturer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "fulfiller directory not available")
	}
	rows, err := s.repo.List(ctx, caller.Role != enums.RoleSuperAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fulfillers")
	}
	return rows, nil
}

// Resolve returns the active fulfiller behind id. Unknown and deactivated
// fulfillers both read as not found.
func Resolve(ctx context.Context, repo Repository, id uuid.UUID) (*models.Fulfiller, error) {
	fulfiller, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfiller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfiller")
	}
	if !fulfiller.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfiller not found")
	}
	return fulfiller, nil
}
