// Package memory is an in-process implementation of every repository
// interface. It mirrors the MongoDB semantics (merge-updates, upserts,
// not-found errors, live subscriptions) and backs tests and local runs.
package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

const trainersTopic = "trainers"

// Store holds every collection behind one lock.
type Store struct {
	mu          sync.RWMutex
	credentials map[primitive.ObjectID]domain.Credential
	accounts    map[primitive.ObjectID]domain.Account
	students    map[primitive.ObjectID]domain.Student
	trainers    map[primitive.ObjectID]domain.Trainer
	routines    map[primitive.ObjectID]domain.Routine
	injuries    map[primitive.ObjectID]domain.Injury
	progress    map[primitive.ObjectID]domain.Progress

	subMu  sync.Mutex
	nextID int
	subs   map[string]map[int]chan struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		credentials: map[primitive.ObjectID]domain.Credential{},
		accounts:    map[primitive.ObjectID]domain.Account{},
		students:    map[primitive.ObjectID]domain.Student{},
		trainers:    map[primitive.ObjectID]domain.Trainer{},
		routines:    map[primitive.ObjectID]domain.Routine{},
		injuries:    map[primitive.ObjectID]domain.Injury{},
		progress:    map[primitive.ObjectID]domain.Progress{},
		subs:        map[string]map[int]chan struct{}{},
	}
}

func (s *Store) Credentials() repository.CredentialRepository { return &credentialRepo{s} }
func (s *Store) Accounts() repository.AccountRepository       { return &accountRepo{s} }
func (s *Store) Students() repository.StudentRepository       { return &studentRepo{s} }
func (s *Store) Trainers() repository.TrainerRepository       { return &trainerRepo{s} }
func (s *Store) Routines() repository.RoutineRepository       { return &routineRepo{s} }
func (s *Store) Injuries() repository.InjuryRepository        { return &injuryRepo{s} }
func (s *Store) Progress() repository.ProgressRepository      { return &progressRepo{s} }

// Repositories returns every repository of the store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Credentials: s.Credentials(),
		Accounts:    s.Accounts(),
		Students:    s.Students(),
		Trainers:    s.Trainers(),
		Routines:    s.Routines(),
		Injuries:    s.Injuries(),
		Progress:    s.Progress(),
	}
}

// subscribe registers a change notification channel for topic.
// Notifications coalesce: a pending signal is not duplicated.
func (s *Store) subscribe(topic string) (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	if s.subs[topic] == nil {
		s.subs[topic] = map[int]chan struct{}{}
	}
	s.subs[topic][id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[topic], id)
		if len(s.subs[topic]) == 0 {
			delete(s.subs, topic)
		}
	}
}

func (s *Store) notify(topic string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// subscriberCount reports the live subscriptions on topic.
func (s *Store) subscriberCount(topic string) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs[topic])
}

func progressTopic(userID primitive.ObjectID) string {
	return "progress:" + userID.Hex()
}

// watch emits read() now and after every notification on topic until ctx is done.
func watch[T any](ctx context.Context, s *Store, topic string, read func() T) <-chan T {
	changes, unsubscribe := s.subscribe(topic)
	out := make(chan T, 1)
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case out <- read():
			case <-ctx.Done():
				return
			}
			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func copyObjectID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneRoutine(r domain.Routine) domain.Routine {
	exercises := make([]domain.ExerciseEntry, len(r.Exercises))
	for i, ex := range r.Exercises {
		ex.Sets = copyInt(ex.Sets)
		ex.Reps = copyInt(ex.Reps)
		exercises[i] = ex
	}
	r.Exercises = exercises
	return r
}

func cloneInjury(i domain.Injury) domain.Injury {
	i.Comments = append([]string{}, i.Comments...)
	return i
}

func cloneProgress(p domain.Progress) domain.Progress {
	dates := make(map[string]domain.DayMark, len(p.CompletedDates))
	for k, v := range p.CompletedDates {
		dates[k] = v
	}
	p.CompletedDates = dates
	return p
}

func cloneStudent(st domain.Student) domain.Student {
	st.TrainerID = copyObjectID(st.TrainerID)
	return st
}
