package services

import (
	"context"
	"fmt"
	"time"

	"eagletask/internal/canvas"
	"eagletask/internal/models"
	"eagletask/internal/repositories"
	"eagletask/internal/todoist"
)

// In-memory fakes for the repository and client interfaces. Failure modes
// are injected through the exported fields.

type fakeTaskRepo struct {
	tasks  []*models.Task
	nextID int64
}

func newFakeTaskRepo() *fakeTaskRepo { return &fakeTaskRepo{nextID: 1} }

func (r *fakeTaskRepo) GetOrCreate(_ context.Context, owner, canvasID int64, name string, due *time.Time) (*models.Task, error) {
	for _, t := range r.tasks {
		if t.Owner == owner && t.CanvasID != nil && *t.CanvasID == canvasID {
			return t, nil
		}
	}
	t := &models.Task{
		ID: r.nextID, Owner: owner, CanvasID: &canvasID,
		Name: name, DueDate: due, Status: models.StatusIncomplete,
	}
	r.nextID++
	r.tasks = append(r.tasks, t)
	return t, nil
}

func (r *fakeTaskRepo) Store(_ context.Context, task *models.Task) error {
	task.ID = r.nextID
	r.nextID++
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id int64) (*models.Task, error) {
	for _, t := range r.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) FindByCanvasID(_ context.Context, owner, canvasID int64) (*models.Task, error) {
	for _, t := range r.tasks {
		if t.Owner == owner && t.CanvasID != nil && *t.CanvasID == canvasID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) FindByTodoistID(_ context.Context, owner int64, todoistID string) (*models.Task, error) {
	for _, t := range r.tasks {
		if t.Owner == owner && t.TodoistID != nil && *t.TodoistID == todoistID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) FindAll(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, t := range r.tasks {
		if filter.Owner != nil && t.Owner != *filter.Owner {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTaskRepo) BindTodoistID(_ context.Context, id int64, todoistID string) error {
	for _, t := range r.tasks {
		if t.ID == id {
			v := todoistID
			t.TodoistID = &v
			return nil
		}
	}
	return fmt.Errorf("task %d not found", id)
}

func (r *fakeTaskRepo) SetDueDate(_ context.Context, id int64, due *time.Time) error {
	for _, t := range r.tasks {
		if t.ID == id {
			t.DueDate = due
			return nil
		}
	}
	return fmt.Errorf("task %d not found", id)
}

func (r *fakeTaskRepo) SetDescription(_ context.Context, id int64, description string) error {
	for _, t := range r.tasks {
		if t.ID == id {
			t.Description = description
			return nil
		}
	}
	return fmt.Errorf("task %d not found", id)
}

func (r *fakeTaskRepo) SetStatus(_ context.Context, id int64, status models.TaskStatus) error {
	for _, t := range r.tasks {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return fmt.Errorf("task %d not found", id)
}

func (r *fakeTaskRepo) Delete(_ context.Context, id int64) error {
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repositories.TaskRepository = (*fakeTaskRepo)(nil)

type fakeFilterRepo struct {
	filters []*models.Filter
	nextID  int64
}

func newFakeFilterRepo() *fakeFilterRepo { return &fakeFilterRepo{nextID: 1} }

func (r *fakeFilterRepo) ListByOwner(_ context.Context, owner int64) ([]models.Filter, error) {
	var out []models.Filter
	for _, f := range r.filters {
		if f.Owner == owner {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFilterRepo) Create(_ context.Context, filter *models.Filter) error {
	for _, f := range r.filters {
		if f.Owner == filter.Owner && f.Filter == filter.Filter {
			return fmt.Errorf("%w: %q", repositories.ErrDuplicateFilter, filter.Filter)
		}
	}
	filter.ID = r.nextID
	r.nextID++
	r.filters = append(r.filters, filter)
	return nil
}

func (r *fakeFilterRepo) DeleteByPhrase(_ context.Context, owner int64, phrase string) (bool, error) {
	for i, f := range r.filters {
		if f.Owner == owner && f.Filter == phrase {
			r.filters = append(r.filters[:i], r.filters[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

var _ repositories.FilterRepository = (*fakeFilterRepo)(nil)

type fakeSubTaskRepo struct {
	subtasks []*models.SubTask
	nextID   int64
}

func newFakeSubTaskRepo() *fakeSubTaskRepo { return &fakeSubTaskRepo{nextID: 1} }

func (r *fakeSubTaskRepo) Store(_ context.Context, st *models.SubTask) error {
	st.ID = r.nextID
	r.nextID++
	r.subtasks = append(r.subtasks, st)
	return nil
}

func (r *fakeSubTaskRepo) FindByID(_ context.Context, id int64) (*models.SubTask, error) {
	for _, st := range r.subtasks {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, nil
}

func (r *fakeSubTaskRepo) FindByTodoistID(_ context.Context, owner int64, todoistID string) (*models.SubTask, error) {
	for _, st := range r.subtasks {
		if st.Owner == owner && st.TodoistID != nil && *st.TodoistID == todoistID {
			return st, nil
		}
	}
	return nil, nil
}

func (r *fakeSubTaskRepo) ListByOwner(_ context.Context, owner int64) ([]models.SubTask, error) {
	var out []models.SubTask
	for _, st := range r.subtasks {
		if st.Owner == owner {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (r *fakeSubTaskRepo) ListByTaskIDs(_ context.Context, owner int64, taskIDs []int64) ([]models.SubTask, error) {
	var out []models.SubTask
	for _, st := range r.subtasks {
		if st.Owner != owner {
			continue
		}
		for _, id := range taskIDs {
			if st.TaskID == id {
				out = append(out, *st)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSubTaskRepo) BindTodoistID(_ context.Context, id int64, todoistID string) error {
	for _, st := range r.subtasks {
		if st.ID == id {
			v := todoistID
			st.TodoistID = &v
			return nil
		}
	}
	return fmt.Errorf("subtask %d not found", id)
}

func (r *fakeSubTaskRepo) SetStatus(_ context.Context, id int64, status models.TaskStatus) error {
	for _, st := range r.subtasks {
		if st.ID == id {
			st.Status = status
			return nil
		}
	}
	return fmt.Errorf("subtask %d not found", id)
}

func (r *fakeSubTaskRepo) SetDueDate(_ context.Context, id int64, due *time.Time) error {
	for _, st := range r.subtasks {
		if st.ID == id {
			st.DueDate = due
			return nil
		}
	}
	return fmt.Errorf("subtask %d not found", id)
}

func (r *fakeSubTaskRepo) SetSharedWith(_ context.Context, id int64, sharedWith []int64) error {
	for _, st := range r.subtasks {
		if st.ID == id {
			st.SharedWith = sharedWith
			return nil
		}
	}
	return fmt.Errorf("subtask %d not found", id)
}

func (r *fakeSubTaskRepo) Delete(_ context.Context, id int64) error {
	for i, st := range r.subtasks {
		if st.ID == id {
			r.subtasks = append(r.subtasks[:i], r.subtasks[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repositories.SubTaskRepository = (*fakeSubTaskRepo)(nil)

type fakeSharedRepo struct {
	links  []*models.SharedSubtaskLink
	nextID int64
}

func newFakeSharedRepo() *fakeSharedRepo { return &fakeSharedRepo{nextID: 1} }

func (r *fakeSharedRepo) Store(_ context.Context, link *models.SharedSubtaskLink) error {
	link.ID = r.nextID
	r.nextID++
	r.links = append(r.links, link)
	return nil
}

func (r *fakeSharedRepo) ListBySubtask(_ context.Context, subtaskID int64) ([]models.SharedSubtaskLink, error) {
	var out []models.SharedSubtaskLink
	for _, l := range r.links {
		if l.SubtaskID == subtaskID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeSharedRepo) FindByTodoistID(_ context.Context, owner int64, todoistID string) (*models.SharedSubtaskLink, error) {
	for _, l := range r.links {
		if l.Owner == owner && l.TodoistID == todoistID {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeSharedRepo) Delete(_ context.Context, id int64) error {
	for i, l := range r.links {
		if l.ID == id {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repositories.SharedSubtaskRepository = (*fakeSharedRepo)(nil)

type fakeInvitationRepo struct {
	invitations []*models.SubTaskInvitation
	nextID      int64
}

func newFakeInvitationRepo() *fakeInvitationRepo { return &fakeInvitationRepo{nextID: 1} }

func (r *fakeInvitationRepo) Store(_ context.Context, inv *models.SubTaskInvitation) error {
	inv.ID = r.nextID
	r.nextID++
	r.invitations = append(r.invitations, inv)
	return nil
}

func (r *fakeInvitationRepo) FindByID(_ context.Context, id int64) (*models.SubTaskInvitation, error) {
	for _, inv := range r.invitations {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, nil
}

func (r *fakeInvitationRepo) ListByRecipient(_ context.Context, recipientID int64) ([]models.SubTaskInvitation, error) {
	var out []models.SubTaskInvitation
	for _, inv := range r.invitations {
		if inv.RecipientID == recipientID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) Delete(_ context.Context, id int64) error {
	for i, inv := range r.invitations {
		if inv.ID == id {
			r.invitations = append(r.invitations[:i], r.invitations[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repositories.InvitationRepository = (*fakeInvitationRepo)(nil)

type fakeUserRepo struct {
	users  []*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{nextID: 1} }

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.users = append(r.users, user)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateTokens(_ context.Context, id int64, canvasTokenEnc, todoistTokenEnc []byte) error {
	for _, u := range r.users {
		if u.ID == id {
			u.CanvasTokenEnc = canvasTokenEnc
			u.TodoistTokenEnc = todoistTokenEnc
			return nil
		}
	}
	return fmt.Errorf("user %d not found", id)
}

func (r *fakeUserRepo) SetTelegramChat(_ context.Context, id int64, chatID int64) error {
	for _, u := range r.users {
		if u.ID == id {
			u.TelegramChatID = chatID
			return nil
		}
	}
	return fmt.Errorf("user %d not found", id)
}

var _ repositories.UserRepository = (*fakeUserRepo)(nil)

type fakeCanvas struct {
	courses     []canvas.Course
	assignments map[int64][]canvas.Assignment
	profile     *canvas.Profile
	err         error
}

func (f *fakeCanvas) ListActiveCourses(_ context.Context, _ string) ([]canvas.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.courses, nil
}

func (f *fakeCanvas) ListAssignments(_ context.Context, _ string, courseID int64) ([]canvas.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assignments[courseID], nil
}

func (f *fakeCanvas) GetProfile(_ context.Context, _ string) (*canvas.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

var _ canvas.Client = (*fakeCanvas)(nil)

type setOpenCall struct {
	id   string
	open bool
}

type fakeTodoist struct {
	batches  [][]todoist.Command
	dropAll  bool // pretend every create failed (empty temp_id_mapping)
	batchErr error

	open map[string]struct{}

	created       []string
	createdParent map[string]string // created id -> parent id
	createErr     error
	nextTaskID    int

	setOpenCalls []setOpenCall
	failSetOpen  map[string]error
}

func newFakeTodoist() *fakeTodoist {
	return &fakeTodoist{
		open:        map[string]struct{}{},
		failSetOpen: map[string]error{},
	}
}

func (f *fakeTodoist) SubmitBatch(_ context.Context, _ string, cmds []todoist.Command) (map[string]string, error) {
	f.batches = append(f.batches, cmds)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	mapping := map[string]string{}
	if f.dropAll {
		return mapping, nil
	}
	for _, cmd := range cmds {
		if cmd.Type != "item_add" {
			continue
		}
		f.nextTaskID++
		mapping[cmd.TempID] = fmt.Sprintf("remote-%d", f.nextTaskID)
	}
	return mapping, nil
}

func (f *fakeTodoist) OpenItems(_ context.Context, _ string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(f.open))
	for k := range f.open {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeTodoist) CreateTask(_ context.Context, _, content, _ string, _ *time.Time, parentID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextTaskID++
	id := fmt.Sprintf("remote-%d", f.nextTaskID)
	f.created = append(f.created, content)
	if f.createdParent == nil {
		f.createdParent = map[string]string{}
	}
	f.createdParent[id] = parentID
	f.open[id] = struct{}{}
	return id, nil
}

func (f *fakeTodoist) SetOpen(_ context.Context, _ string, id string, open bool) error {
	if err, ok := f.failSetOpen[id]; ok {
		return err
	}
	f.setOpenCalls = append(f.setOpenCalls, setOpenCall{id: id, open: open})
	if open {
		f.open[id] = struct{}{}
	} else {
		delete(f.open, id)
	}
	return nil
}

var _ todoist.Client = (*fakeTodoist)(nil)

type fakeCreds struct {
	canvasKeys  map[int64]string
	todoistKeys map[int64]string
}

func newFakeCreds(userIDs ...int64) *fakeCreds {
	f := &fakeCreds{canvasKeys: map[int64]string{}, todoistKeys: map[int64]string{}}
	for _, id := range userIDs {
		f.canvasKeys[id] = fmt.Sprintf("canvas-key-%d", id)
		f.todoistKeys[id] = fmt.Sprintf("todoist-key-%d", id)
	}
	return f
}

func (f *fakeCreds) DecryptCanvasKey(userID int64) (string, error) {
	if k, ok := f.canvasKeys[userID]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: user %d", ErrCredentialExpired, userID)
}

func (f *fakeCreds) DecryptTodoistKey(userID int64) (string, error) {
	if k, ok := f.todoistKeys[userID]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: user %d", ErrCredentialExpired, userID)
}

var _ CredentialProvider = (*fakeCreds)(nil)

type fakeEmail struct {
	invitations []string // recipient emails
	welcomes    []string
	err         error
}

func (f *fakeEmail) SendWelcomeEmail(email, _ string) error {
	f.welcomes = append(f.welcomes, email)
	return f.err
}

func (f *fakeEmail) SendInvitation(email, _, _ string) error {
	f.invitations = append(f.invitations, email)
	return f.err
}

var _ EmailService = (*fakeEmail)(nil)

type fakeTelegram struct {
	notified []int64
	err      error
}

func (f *fakeTelegram) NotifyInvitation(chatID int64, _, _ string) error {
	f.notified = append(f.notified, chatID)
	return f.err
}

var _ TelegramService = (*fakeTelegram)(nil)

func strptr(s string) *string        { return &s }
func timeptr(t time.Time) *time.Time { return &t }
