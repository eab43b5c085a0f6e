// internal/domain/response/repository.go
package response

import "context"

// Repository reads submitted responses.
type Repository interface {
	ListByCourse(ctx context.Context, courseID string) ([]*Response, error)
}

// FormRepository reads form templates.
type FormRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*FormTemplate, error)
}

// TraineeDirectory resolves profile data for trainee ids. Unknown ids are absent from the result.
type TraineeDirectory interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*Trainee, error)
}
