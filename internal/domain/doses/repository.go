package doses

import "context"

type Repository interface {
	Append(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	ListByMedication(ctx context.Context, medicationID string) ([]Record, error)
	RemoveByMedication(ctx context.Context, medicationID string) error
}
