package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"eagletask/internal/canvas"
	"eagletask/internal/models"
	"eagletask/internal/repositories"
	"eagletask/internal/todoist"
)

// SyncService runs the Canvas → Todoist synchronization pipeline for one
// account: harvest assignments, batch create/update mutations, resolve temp
// ids back to local rows, then reconcile completion status against remote
// truth. Shared subtasks are handed off to the ShareService for correction
// instead of being overwritten from remote state.
type SyncService interface {
	RunFullSync(ctx context.Context, owner int64) error
}

type syncService struct {
	tasks    repositories.TaskRepository
	subtasks repositories.SubTaskRepository
	creds    CredentialProvider
	canvas   canvas.Client
	todoist  todoist.Client
	share    ShareService

	loc         *time.Location
	createLimit int
	now         func() time.Time

	// Runs are serialized per account: two overlapping runs could both see
	// an unlinked task and emit duplicate Create commands. The map holds one
	// mutex per account seen and is never pruned; it grows with the number of
	// accounts that synced during the process lifetime, a few dozen bytes
	// each. TODO: evict idle entries if account counts ever reach millions.
	lockMu       sync.Mutex
	accountLocks map[int64]*sync.Mutex
}

func NewSyncService(
	tasks repositories.TaskRepository,
	subtasks repositories.SubTaskRepository,
	creds CredentialProvider,
	canvasClient canvas.Client,
	todoistClient todoist.Client,
	share ShareService,
	timezone string,
	createLimit int,
) SyncService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("[sync] invalid timezone %q, falling back to UTC: %v", timezone, err)
		loc = time.UTC
	}
	if createLimit <= 0 {
		createLimit = 25
	}
	return &syncService{
		tasks:        tasks,
		subtasks:     subtasks,
		creds:        creds,
		canvas:       canvasClient,
		todoist:      todoistClient,
		share:        share,
		loc:          loc,
		createLimit:  createLimit,
		now:          time.Now,
		accountLocks: make(map[int64]*sync.Mutex),
	}
}

// candidate is one harvested assignment that is still worth mirroring.
type candidate struct {
	canvasID int64
	name     string
	dueAt    *time.Time
}

func (s *syncService) RunFullSync(ctx context.Context, owner int64) error {
	unlock := s.lockAccount(owner)
	defer unlock()

	canvasKey, err := s.creds.DecryptCanvasKey(owner)
	if err != nil {
		return err
	}
	todoistKey, err := s.creds.DecryptTodoistKey(owner)
	if err != nil {
		return err
	}

	candidates, err := s.harvest(ctx, canvasKey)
	if err != nil {
		return fmt.Errorf("harvest: %w", translateRemoteErr(err))
	}
	log.Printf("[sync][harvest][ok] owner=%d candidates=%d", owner, len(candidates))

	if err := s.pushAssignments(ctx, todoistKey, owner, candidates); err != nil {
		return fmt.Errorf("push: %w", translateRemoteErr(err))
	}

	if err := s.reconcile(ctx, todoistKey, owner); err != nil {
		return fmt.Errorf("reconcile: %w", translateRemoteErr(err))
	}
	return nil
}

// harvest fetches every active course's assignments, one goroutine per
// course, normalizes due dates into the configured timezone and returns the
// still-future candidates sorted by due date (undated last).
func (s *syncService) harvest(ctx context.Context, canvasKey string) ([]candidate, error) {
	courses, err := s.canvas.ListActiveCourses(ctx, canvasKey)
	if err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		all      []canvas.Assignment
		firstErr error
	)
	for _, course := range courses {
		wg.Add(1)
		go func(courseID int64) {
			defer wg.Done()
			assignments, err := s.canvas.ListAssignments(ctx, canvasKey, courseID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("course %d: %w", courseID, err)
				}
				return
			}
			all = append(all, assignments...)
		}(course.ID)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	now := s.now()
	var candidates []candidate
	for _, a := range all {
		var due *time.Time
		if a.DueAt != nil {
			localized := a.DueAt.In(s.loc)
			if localized.Before(now) {
				continue // already past due, nothing to mirror
			}
			due = &localized
		}
		candidates = append(candidates, candidate{canvasID: a.ID, name: a.Name, dueAt: due})
	}

	// Stable order so remote tasks are created in due-date order; undated
	// assignments go last. Has no correctness impact, but keeps output
	// predictable for debugging.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].dueAt, candidates[j].dueAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return candidates, nil
}

// pushAssignments is the batcher plus resolver: one batched mutation call,
// then temp ids mapped back onto the local rows that spawned them.
func (s *syncService) pushAssignments(ctx context.Context, todoistKey string, owner int64, candidates []candidate) error {
	var commands []todoist.Command
	tempToTask := make(map[string]int64) // run-scoped, discarded after resolution
	creates := 0

	for _, c := range candidates {
		task, err := s.tasks.GetOrCreate(ctx, owner, c.canvasID, c.name, c.dueAt)
		if err != nil {
			if errors.Is(err, repositories.ErrLinkageConflict) {
				log.Printf("[sync][batch][err] owner=%d canvas_id=%d: %v", owner, c.canvasID, err)
				continue
			}
			return err
		}

		switch {
		case !task.Linked():
			if creates >= s.createLimit {
				continue // rate limit; picked up on a later run
			}
			cmd := todoist.NewItemAdd(c.name, c.dueAt)
			commands = append(commands, cmd)
			tempToTask[cmd.TempID] = task.ID
			creates++
		case !equalDue(task.DueDate, c.dueAt):
			commands = append(commands, todoist.NewItemUpdate(*task.TodoistID, c.dueAt))
			// Persist the new due date before the batch goes out. A lost
			// remote update is re-emitted the next time Canvas moves the
			// date.
			if err := s.tasks.SetDueDate(ctx, task.ID, c.dueAt); err != nil {
				log.Printf("[sync][batch][err] persist due date task=%d: %v", task.ID, err)
			}
		}
	}

	if len(commands) == 0 {
		return nil
	}
	log.Printf("[sync][batch] owner=%d commands=%d creates=%d", owner, len(commands), creates)

	mapping, err := s.todoist.SubmitBatch(ctx, todoistKey, commands)
	if err != nil {
		return err
	}

	resolved := 0
	for tempID, taskID := range tempToTask {
		remoteID, ok := mapping[tempID]
		if !ok {
			continue // failed create; retried as a fresh Create next run
		}
		if err := s.tasks.BindTodoistID(ctx, taskID, remoteID); err != nil {
			log.Printf("[sync][resolve][err] bind task=%d remote=%s: %v", taskID, remoteID, err)
			continue
		}
		resolved++
	}
	if resolved < len(tempToTask) {
		perr := &PartialBatchError{Submitted: len(tempToTask), Unresolved: len(tempToTask) - resolved}
		log.Printf("[sync][resolve][warn] owner=%d %v", owner, perr)
	}
	return nil
}

// reconcile pulls the complete open set once and overwrites local status
// from remote truth for every linked, non-shared item. Shared subtasks with
// drifted mirrors are collected and corrected through the propagator, since
// the database status is authoritative for them.
func (s *syncService) reconcile(ctx context.Context, todoistKey string, owner int64) error {
	open, err := s.todoist.OpenItems(ctx, todoistKey)
	if err != nil {
		return err
	}

	tasks, err := s.tasks.FindAll(ctx, models.TaskFilter{Owner: &owner})
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if !t.Linked() {
			continue
		}
		want := statusFromOpen(open, *t.TodoistID)
		if t.Status == want {
			continue
		}
		if err := s.tasks.SetStatus(ctx, t.ID, want); err != nil {
			log.Printf("[sync][reconcile][err] task=%d: %v", t.ID, err)
		}
	}

	subtasks, err := s.subtasks.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}
	var drifted []models.SubTask
	for _, st := range subtasks {
		if !st.Linked() {
			continue
		}
		remote := statusFromOpen(open, *st.TodoistID)
		if st.Shared() {
			if remote != st.Status {
				drifted = append(drifted, st)
			}
			continue
		}
		if remote == st.Status {
			continue
		}
		if err := s.subtasks.SetStatus(ctx, st.ID, remote); err != nil {
			log.Printf("[sync][reconcile][err] subtask=%d: %v", st.ID, err)
		}
	}

	for _, st := range drifted {
		// Best effort; a propagation failure for one subtask never blocks
		// the others, and the sync run itself still counts as successful.
		if err := s.share.Propagate(ctx, &st); err != nil {
			log.Printf("[sync][propagate][warn] subtask=%d: %v", st.ID, err)
		}
	}
	return nil
}

func (s *syncService) lockAccount(owner int64) func() {
	s.lockMu.Lock()
	lock, ok := s.accountLocks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[owner] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func statusFromOpen(open map[string]struct{}, todoistID string) models.TaskStatus {
	if _, ok := open[todoistID]; ok {
		return models.StatusIncomplete
	}
	return models.StatusCompleted
}

func equalDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// translateRemoteErr maps client sentinels onto the service taxonomy.
func translateRemoteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, canvas.ErrUnauthorized), errors.Is(err, todoist.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrCredentialExpired, err)
	case errors.Is(err, canvas.ErrUnavailable), errors.Is(err, todoist.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	default:
		return err
	}
}
