package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

type mockTaskRepo struct {
	mock.Mock
}

func (m *mockTaskRepo) Create(ctx context.Context, task *types.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, taskID uuid.UUID) (*types.Task, error) {
	args := m.Called(ctx, taskID)
	if t := args.Get(0); t != nil {
		return t.(*types.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepo) List(ctx context.Context, scope types.TaskScope, filter types.TaskListFilter) ([]*types.Task, error) {
	args := m.Called(ctx, scope, filter)
	if t := args.Get(0); t != nil {
		return t.([]*types.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepo) Update(ctx context.Context, task *types.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *mockTaskRepo) Delete(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// stubInvalidator records invalidation calls and can be told to panic, to
// prove the mutation survives a broken cache.
type stubInvalidator struct {
	mu       sync.Mutex
	prefixes []string
	panics   bool
}

func (s *stubInvalidator) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	s.prefixes = append(s.prefixes, prefix)
	s.mu.Unlock()
	if s.panics {
		panic("cache store corrupted")
	}
	return 1
}

func (s *stubInvalidator) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prefixes...)
}

type emittedEvent struct {
	event   string
	payload interface{}
}

type stubBroadcaster struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (s *stubBroadcaster) Emit(event string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, emittedEvent{event: event, payload: payload})
}

func (s *stubBroadcaster) emitted() []emittedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]emittedEvent(nil), s.events...)
}

type notifCall struct {
	notifType string
	taskID    uuid.UUID
	recipient string
}

// stubNotifier pushes calls onto a channel so tests can wait for the
// fire-and-forget goroutine.
type stubNotifier struct {
	calls chan notifCall
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{calls: make(chan notifCall, 4)}
}

func (s *stubNotifier) Send(ctx context.Context, notifType string, task *types.Task, recipientID string) {
	call := notifCall{notifType: notifType, recipient: recipientID}
	if task != nil {
		call.taskID = task.ID
	}
	s.calls <- call
}

func (s *stubNotifier) wait(t *testing.T) notifCall {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification dispatch")
		return notifCall{}
	}
}

type serviceFixture struct {
	svc      *ServiceImpl
	repo     *mockTaskRepo
	users    *mockUserDirectory
	cache    *stubInvalidator
	hub      *stubBroadcaster
	notifier *stubNotifier
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:     new(mockTaskRepo),
		users:    new(mockUserDirectory),
		cache:    &stubInvalidator{},
		hub:      &stubBroadcaster{},
		notifier: newStubNotifier(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.repo, f.users, f.cache, f.hub, f.notifier, logger)
	return f
}

func strPtr(s string) *string { return &s }

func TestCreate_ForcesPendingAndFiresSideEffects(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	creator := uuid.New()
	assignee := uuid.New()

	f.users.On("UserExists", mock.Anything, assignee).Return(true, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*types.Task")).
		Run(func(args mock.Arguments) {
			task := args.Get(1).(*types.Task)
			task.ID = uuid.New()
		}).Return(nil)

	created, err := f.svc.Create(ctx, creator, types.CreateTaskRequest{
		Title:      "Ship quarterly report",
		AssignedTo: assignee.String(),
		// Caller tries to start the task Completed; must be ignored.
		Status: strPtr(string(types.StatusCompleted)),
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusPending, created.Status)
	assert.Equal(t, types.PriorityMedium, created.Priority)
	assert.Equal(t, creator, created.CreatedBy)
	assert.Equal(t, assignee, created.AssignedTo)

	assert.Equal(t, []string{"/api/tasks"}, f.cache.calls())
	events := f.hub.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTaskCreated, events[0].event)

	call := f.notifier.wait(t)
	assert.Equal(t, types.NotifyTaskCreated, call.notifType)
	assert.Equal(t, assignee.String(), call.recipient)
	f.repo.AssertExpectations(t)
}

func TestCreate_ValidationFailuresSkipPersistence(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	creator := uuid.New()

	cases := []struct {
		name string
		req  types.CreateTaskRequest
	}{
		{"empty title", types.CreateTaskRequest{Title: "  ", AssignedTo: uuid.NewString()}},
		{"malformed assignee", types.CreateTaskRequest{Title: "x", AssignedTo: "not-a-uuid"}},
		{"bad priority", types.CreateTaskRequest{Title: "x", AssignedTo: uuid.NewString(), Priority: strPtr("Urgent")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, creator, tc.req)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.cache.calls())
	assert.Empty(t, f.hub.emitted())
}

func TestCreate_UnknownAssigneeRejected(t *testing.T) {
	f := newServiceFixture()
	assignee := uuid.New()
	f.users.On("UserExists", mock.Anything, assignee).Return(false, nil)

	_, err := f.svc.Create(context.Background(), uuid.New(), types.CreateTaskRequest{
		Title:      "Orphan task",
		AssignedTo: assignee.String(),
	})
	assert.ErrorIs(t, err, types.ErrValidation)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdate_AssigneeCanUpdateOwnTask(t *testing.T) {
	f := newServiceFixture()
	assignee := uuid.New()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Review PR",
		Status:     types.StatusPending,
		Priority:   types.PriorityMedium,
		AssignedTo: assignee,
		CreatedBy:  uuid.New(),
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	f.repo.On("Update", mock.Anything, mock.AnythingOfType("*types.Task")).Return(nil)

	updated, err := f.svc.Update(context.Background(), assignee, types.RoleUser, stored.ID,
		types.UpdateTaskRequest{Status: strPtr(string(types.StatusCompleted))})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, updated.Status)

	// No assignee change: the status-update notification goes out.
	call := f.notifier.wait(t)
	assert.Equal(t, types.NotifyTaskStatusUpdate, call.notifType)
	assert.Equal(t, assignee.String(), call.recipient)
}

func TestUpdate_ReassignmentSwitchesNotificationType(t *testing.T) {
	f := newServiceFixture()
	oldAssignee := uuid.New()
	newAssignee := uuid.New()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Rotate credentials",
		Status:     types.StatusPending,
		Priority:   types.PriorityHigh,
		AssignedTo: oldAssignee,
		CreatedBy:  oldAssignee,
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	f.repo.On("Update", mock.Anything, mock.AnythingOfType("*types.Task")).Return(nil)

	// The caller reassigns the task away from themselves; the permission
	// check runs against the pre-update state, so this succeeds.
	updated, err := f.svc.Update(context.Background(), oldAssignee, types.RoleUser, stored.ID,
		types.UpdateTaskRequest{AssignedTo: strPtr(newAssignee.String())})
	require.NoError(t, err)
	assert.Equal(t, newAssignee, updated.AssignedTo)

	call := f.notifier.wait(t)
	assert.Equal(t, types.NotifyTaskAssigned, call.notifType)
	assert.Equal(t, newAssignee.String(), call.recipient)
}

func TestUpdate_UnrelatedUserForbidden(t *testing.T) {
	f := newServiceFixture()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Private task",
		AssignedTo: uuid.New(),
		CreatedBy:  uuid.New(),
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	_, err := f.svc.Update(context.Background(), uuid.New(), types.RoleUser, stored.ID,
		types.UpdateTaskRequest{Status: strPtr(string(types.StatusCompleted))})
	assert.ErrorIs(t, err, types.ErrForbidden)

	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, f.cache.calls())
	assert.Empty(t, f.hub.emitted())
}

func TestUpdate_MissingTaskIsNotFoundBeforePermission(t *testing.T) {
	f := newServiceFixture()
	taskID := uuid.New()
	f.repo.On("GetByID", mock.Anything, taskID).Return(nil, types.ErrNotFound)

	// Even a caller who could never touch this task gets 404, not 403: the
	// permission check needs the stored record.
	_, err := f.svc.Update(context.Background(), uuid.New(), types.RoleUser, taskID,
		types.UpdateTaskRequest{Status: strPtr(string(types.StatusCompleted))})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelete_CreatorOnly(t *testing.T) {
	f := newServiceFixture()
	creator := uuid.New()
	assignee := uuid.New()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Tear down staging",
		AssignedTo: assignee,
		CreatedBy:  creator,
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	// The assignee is not the creator: forbidden.
	err := f.svc.Delete(context.Background(), assignee, types.RoleUser, stored.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	f.repo.On("Delete", mock.Anything, stored.ID).Return(nil)
	err = f.svc.Delete(context.Background(), creator, types.RoleUser, stored.ID)
	require.NoError(t, err)

	events := f.hub.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTaskDeleted, events[0].event)
	assert.Equal(t, map[string]string{"taskId": stored.ID.String()}, events[0].payload)

	call := f.notifier.wait(t)
	assert.Equal(t, types.NotifyTaskDeleted, call.notifType)
	assert.Equal(t, assignee.String(), call.recipient)
}

func TestAssign_ValidatesTargetUser(t *testing.T) {
	f := newServiceFixture()
	target := uuid.New()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Handover",
		AssignedTo: uuid.New(),
		CreatedBy:  uuid.New(),
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	f.users.On("UserExists", mock.Anything, target).Return(false, nil)

	_, err := f.svc.Assign(context.Background(), stored.ID, target)
	assert.ErrorIs(t, err, types.ErrValidation)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAssign_Succeeds(t *testing.T) {
	f := newServiceFixture()
	target := uuid.New()
	stored := &types.Task{
		ID:         uuid.New(),
		Title:      "Handover",
		AssignedTo: uuid.New(),
		CreatedBy:  uuid.New(),
	}
	f.repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	f.users.On("UserExists", mock.Anything, target).Return(true, nil)
	f.repo.On("Update", mock.Anything, mock.AnythingOfType("*types.Task")).Return(nil)

	updated, err := f.svc.Assign(context.Background(), stored.ID, target)
	require.NoError(t, err)
	assert.Equal(t, target, updated.AssignedTo)

	call := f.notifier.wait(t)
	assert.Equal(t, types.NotifyTaskAssigned, call.notifType)
	assert.Equal(t, target.String(), call.recipient)
}

func TestMutation_SurvivesCachePanic(t *testing.T) {
	f := newServiceFixture()
	f.cache.panics = true
	assignee := uuid.New()

	f.users.On("UserExists", mock.Anything, assignee).Return(true, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*types.Task")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*types.Task).ID = uuid.New()
		}).Return(nil)

	created, err := f.svc.Create(context.Background(), uuid.New(), types.CreateTaskRequest{
		Title:      "Still succeeds",
		AssignedTo: assignee.String(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	// Later hooks still ran.
	assert.Len(t, f.hub.emitted(), 1)
	f.notifier.wait(t)
}

func TestList_AppliesRoleScope(t *testing.T) {
	f := newServiceFixture()
	userID := uuid.New()

	f.repo.On("List", mock.Anything, mock.MatchedBy(func(scope types.TaskScope) bool {
		return scope.AssignedTo != nil && *scope.AssignedTo == userID
	}), mock.Anything).Return([]*types.Task{}, nil)

	_, err := f.svc.List(context.Background(), userID, types.RoleUser, types.TaskListFilter{})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}
