package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

type credentialRepo struct{ s *Store }

func (r *credentialRepo) Create(_ context.Context, cred *domain.Credential) (primitive.ObjectID, error) {
	if cred.Email == "" || cred.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("credential email and password hash are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cred.Email = strings.ToLower(cred.Email)
	for _, existing := range r.s.credentials {
		if existing.Email == cred.Email {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	if cred.ID.IsZero() {
		cred.ID = primitive.NewObjectID()
	}
	r.s.credentials[cred.ID] = *cred
	return cred.ID, nil
}

func (r *credentialRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cred, ok := r.s.credentials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cred, nil
}

func (r *credentialRepo) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, cred := range r.s.credentials {
		if cred.Email == email {
			return &cred, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *credentialRepo) UpdatePasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.update(id, func(c *domain.Credential) { c.PasswordHash = hash })
}

func (r *credentialRepo) RecordSignIn(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return r.update(id, func(c *domain.Credential) { c.LastSignInAt = at.UTC() })
}

func (r *credentialRepo) update(id primitive.ObjectID, fn func(*domain.Credential)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.credentials[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&cred)
	r.s.credentials[id] = cred
	return nil
}

func (r *credentialRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.credentials[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.credentials, id)
	return nil
}

type accountRepo struct{ s *Store }

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	if account.ID.IsZero() || account.Email == "" || account.Role == "" {
		return errors.New("account id, email, and role are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[account.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (r *accountRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.accounts, id)
	return nil
}

type studentRepo struct{ s *Store }

func (r *studentRepo) Create(_ context.Context, student *domain.Student) error {
	if student.ID.IsZero() {
		return errors.New("student id is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[student.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	r.s.students[student.ID] = cloneStudent(*student)
	return nil
}

func (r *studentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	student, ok := r.s.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	student = cloneStudent(student)
	return &student, nil
}

func (r *studentRepo) List(_ context.Context) ([]domain.Student, error) {
	return r.filter(func(domain.Student) bool { return true }), nil
}

func (r *studentRepo) ListByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Student, error) {
	return r.filter(func(st domain.Student) bool { return st.AssignedTo(trainerID) }), nil
}

func (r *studentRepo) filter(keep func(domain.Student) bool) []domain.Student {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	students := []domain.Student{}
	for _, st := range r.s.students {
		if keep(st) {
			students = append(students, cloneStudent(st))
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID.Hex() < students[j].ID.Hex()
	})
	return students
}

func (r *studentRepo) SetTrainer(_ context.Context, studentID, trainerID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	student, ok := r.s.students[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	student.TrainerID = &trainerID
	student.UpdatedAt = time.Now().UTC()
	r.s.students[studentID] = student
	return nil
}

func (r *studentRepo) ClearTrainer(_ context.Context, trainerID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var cleared int64
	for id, student := range r.s.students {
		if student.AssignedTo(trainerID) {
			student.TrainerID = nil
			student.UpdatedAt = time.Now().UTC()
			r.s.students[id] = student
			cleared++
		}
	}
	return cleared, nil
}

type trainerRepo struct{ s *Store }

func (r *trainerRepo) Create(_ context.Context, trainer *domain.Trainer) error {
	if trainer.ID.IsZero() || trainer.Name == "" {
		return errors.New("trainer id and name are required")
	}
	r.s.mu.Lock()
	if _, ok := r.s.trainers[trainer.ID]; ok {
		r.s.mu.Unlock()
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now
	r.s.trainers[trainer.ID] = *trainer
	r.s.mu.Unlock()

	r.s.notify(trainersTopic)
	return nil
}

func (r *trainerRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Trainer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	trainer, ok := r.s.trainers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &trainer, nil
}

func (r *trainerRepo) List(_ context.Context) ([]domain.Trainer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	trainers := make([]domain.Trainer, 0, len(r.s.trainers))
	for _, t := range r.s.trainers {
		trainers = append(trainers, t)
	}
	sort.Slice(trainers, func(i, j int) bool {
		if trainers[i].Name != trainers[j].Name {
			return trainers[i].Name < trainers[j].Name
		}
		return trainers[i].ID.Hex() < trainers[j].ID.Hex()
	})
	return trainers, nil
}

func (r *trainerRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	if _, ok := r.s.trainers[id]; !ok {
		r.s.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.s.trainers, id)
	r.s.mu.Unlock()

	r.s.notify(trainersTopic)
	return nil
}

func (r *trainerRepo) Watch(ctx context.Context) (<-chan domain.TrainersSnapshot, error) {
	return watch(ctx, r.s, trainersTopic, func() domain.TrainersSnapshot {
		trainers, err := r.List(ctx)
		return domain.TrainersSnapshot{Trainers: trainers, Err: err}
	}), nil
}
