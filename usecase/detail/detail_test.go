package detail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendly/agenda/domain"
)

type fakeRepo struct {
	nextID    int64
	rows      map[int64]domain.Detail
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, rows: map[int64]domain.Detail{}}
}

func (r *fakeRepo) Create(_ context.Context, detail *domain.Detail) (*domain.Detail, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	detail.ID = r.nextID
	r.nextID++
	r.rows[detail.ID] = *detail
	return detail, nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

func (r *fakeRepo) DeleteByAppointment(_ context.Context, appointmentID int64) (int64, error) {
	var rows int64
	for id, detail := range r.rows {
		if detail.AppointmentID == appointmentID {
			delete(r.rows, id)
			rows++
		}
	}
	return rows, nil
}

func (r *fakeRepo) countFor(appointmentID int64) int {
	n := 0
	for _, detail := range r.rows {
		if detail.AppointmentID == appointmentID {
			n++
		}
	}
	return n
}

type fakeBus struct {
	events []domain.Event
	err    error
}

func (b *fakeBus) Publish(_ context.Context, event domain.Event) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

type fakeSuggester struct {
	text string
	err  error
}

func (s *fakeSuggester) Suggest(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func encode(t *testing.T, event domain.Event) []byte {
	t.Helper()
	body, err := domain.EncodeEvent(event)
	require.NoError(t, err)
	return body
}

func TestApplyAppointmentCreatedGeneratesDetail(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{text: "Bring your insurance card"}, nil)

	body := encode(t, domain.AppointmentCreated{ID: 7, Description: "Dentist", Date: "2024-01-01", Time: "09:00"})
	require.NoError(t, uc.Apply(context.Background(), body))

	assert.Equal(t, 1, repo.countFor(7))
	stored := repo.rows[1]
	assert.Equal(t, "Bring your insurance card", stored.Text)
	assert.True(t, stored.Generated)

	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.DetailCreated{
		AppointmentID: 7, Text: "Bring your insurance card", Generated: true,
	}, bus.events[0])
}

func TestApplyAppointmentCreatedAIFailure(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{err: errors.New("quota exceeded")}, nil)

	body := encode(t, domain.AppointmentCreated{ID: 7, Description: "Dentist"})
	require.NoError(t, uc.Apply(context.Background(), body), "AI failure is accepted degradation, not a handler error")

	assert.Equal(t, 0, repo.countFor(7), "no detail may be persisted on AI failure")
	assert.Empty(t, bus.events, "nothing may be published on AI failure")
}

func TestApplyAppointmentCreatedInsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("insert failed")
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{text: "tip"}, nil)

	body := encode(t, domain.AppointmentCreated{ID: 7, Description: "Dentist"})
	require.Error(t, uc.Apply(context.Background(), body))
	assert.Empty(t, bus.events, "never publish without a persisted detail")
}

func TestApplyAppointmentDeletedCascades(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{}, nil)

	_, err := uc.CreateManual(context.Background(), 7, "note one")
	require.NoError(t, err)
	_, err = uc.CreateManual(context.Background(), 7, "note two")
	require.NoError(t, err)
	_, err = uc.CreateManual(context.Background(), 8, "other appointment")
	require.NoError(t, err)

	body := encode(t, domain.AppointmentDeleted{ID: 7})
	require.NoError(t, uc.Apply(context.Background(), body))

	assert.Equal(t, 0, repo.countFor(7))
	assert.Equal(t, 1, repo.countFor(8))

	// Replay of the same deletion is a no-op, not an error.
	require.NoError(t, uc.Apply(context.Background(), body))
}

func TestApplyIgnoresOwnEvents(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{text: "tip"}, nil)

	require.NoError(t, uc.Apply(context.Background(), encode(t, domain.DetailCreated{AppointmentID: 1, Text: "x"})))
	require.NoError(t, uc.Apply(context.Background(), encode(t, domain.DetailDeleted{ID: 1})))

	assert.Empty(t, repo.rows)
	assert.Empty(t, bus.events)
}

func TestApplyIgnoresUnknownAndMalformed(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{text: "tip"}, nil)

	require.NoError(t, uc.Apply(context.Background(), []byte(`{"eventType":"SomethingElse","details":{"id":1}}`)))
	require.NoError(t, uc.Apply(context.Background(), []byte(`not even json`)))

	assert.Empty(t, repo.rows)
	assert.Empty(t, bus.events)
}

func TestCreateManualPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{}, nil)

	created, err := uc.CreateManual(context.Background(), 7, "remember the referral")
	require.NoError(t, err)
	assert.False(t, created.Generated)

	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.DetailCreated{
		AppointmentID: 7, Text: "remember the referral", Generated: false,
	}, bus.events[0])
}

func TestDeleteMissingDetail(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	uc := New(repo, bus, &fakeSuggester{}, nil)

	err := uc.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrDetailNotFound)
	assert.Empty(t, bus.events)
}
