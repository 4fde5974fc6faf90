package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"eagletask/internal/models"
	"eagletask/internal/repositories"
	"eagletask/internal/todoist"
)

// ShareService manages shared subtasks: the invitation flow and the fan-out
// that keeps every participant's Todoist mirror consistent with the
// authoritative database status.
type ShareService interface {
	// Propagate pushes the subtask's stored status to every mirror in the
	// fan-out set. Partial failure is reported as a *PropagationError.
	Propagate(ctx context.Context, subtask *models.SubTask) error
	// ToggleShared flips the stored status and fans the new status out. The
	// flip is kept if at least one mirror accepted it, reverted otherwise.
	ToggleShared(ctx context.Context, subtask *models.SubTask) (*models.SubTask, error)
	Invite(ctx context.Context, owner int64, recipientEmail string, subtaskID int64) (*models.SubTaskInvitation, error)
	Respond(ctx context.Context, recipientID, invitationID int64, accept bool) error
	ListInvitations(ctx context.Context, recipientID int64) ([]models.SubTaskInvitation, error)
}

type shareService struct {
	subtasks    repositories.SubTaskRepository
	shared      repositories.SharedSubtaskRepository
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	creds       CredentialProvider
	todoist     todoist.Client
	email       EmailService
	telegram    TelegramService
}

func NewShareService(
	subtasks repositories.SubTaskRepository,
	shared repositories.SharedSubtaskRepository,
	invitations repositories.InvitationRepository,
	users repositories.UserRepository,
	creds CredentialProvider,
	todoistClient todoist.Client,
	email EmailService,
	telegram TelegramService,
) ShareService {
	return &shareService{
		subtasks:    subtasks,
		shared:      shared,
		invitations: invitations,
		users:       users,
		creds:       creds,
		todoist:     todoistClient,
		email:       email,
		telegram:    telegram,
	}
}

// mirror is one participant's Todoist copy of a shared subtask.
type mirror struct {
	owner     int64
	todoistID string
}

func (s *shareService) Propagate(ctx context.Context, subtask *models.SubTask) error {
	mirrors, err := s.fanOutSet(ctx, subtask)
	if err != nil {
		return err
	}
	_, failed := s.fanOut(ctx, mirrors, subtask.Status)
	if len(failed) > 0 {
		return &PropagationError{SubtaskID: subtask.ID, Failed: failed}
	}
	return nil
}

func (s *shareService) ToggleShared(ctx context.Context, subtask *models.SubTask) (*models.SubTask, error) {
	next := subtask.Status.Toggled()
	if err := s.subtasks.SetStatus(ctx, subtask.ID, next); err != nil {
		return nil, err
	}
	subtask.Status = next

	mirrors, err := s.fanOutSet(ctx, subtask)
	if err != nil {
		return nil, err
	}
	succeeded, failed := s.fanOut(ctx, mirrors, next)

	if succeeded == 0 && len(mirrors) > 0 {
		// No mirror took the change, so the flip never happened as far as
		// any participant can see. Roll the database back to match.
		prev := next.Toggled()
		if err := s.subtasks.SetStatus(ctx, subtask.ID, prev); err != nil {
			return nil, fmt.Errorf("revert status after failed fan-out: %w", err)
		}
		subtask.Status = prev
		return nil, fmt.Errorf("%w: no mirror accepted the toggle for subtask %d",
			ErrRemoteUnavailable, subtask.ID)
	}
	if len(failed) > 0 {
		perr := &PropagationError{SubtaskID: subtask.ID, Failed: failed}
		log.Printf("[share][toggle][warn] %v", perr)
	}
	return subtask, nil
}

// fanOutSet is the owner's mirror plus every participant link.
func (s *shareService) fanOutSet(ctx context.Context, subtask *models.SubTask) ([]mirror, error) {
	var mirrors []mirror
	if subtask.Linked() {
		mirrors = append(mirrors, mirror{owner: subtask.Owner, todoistID: *subtask.TodoistID})
	}
	links, err := s.shared.ListBySubtask(ctx, subtask.ID)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		mirrors = append(mirrors, mirror{owner: l.Owner, todoistID: l.TodoistID})
	}
	return mirrors, nil
}

// fanOut pushes status to each mirror with that participant's own token. A
// failure for one participant never blocks the rest.
func (s *shareService) fanOut(ctx context.Context, mirrors []mirror, status models.TaskStatus) (succeeded int, failed []string) {
	open := status == models.StatusIncomplete
	for _, m := range mirrors {
		token, err := s.creds.DecryptTodoistKey(m.owner)
		if err != nil {
			log.Printf("[share][fanout][err] owner=%d mirror=%s: %v", m.owner, m.todoistID, err)
			failed = append(failed, m.todoistID)
			continue
		}
		if err := s.todoist.SetOpen(ctx, token, m.todoistID, open); err != nil {
			log.Printf("[share][fanout][err] owner=%d mirror=%s: %v", m.owner, m.todoistID, err)
			failed = append(failed, m.todoistID)
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

func (s *shareService) Invite(ctx context.Context, owner int64, recipientEmail string, subtaskID int64) (*models.SubTaskInvitation, error) {
	subtask, err := s.subtasks.FindByID(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if subtask == nil || subtask.Owner != owner {
		return nil, errors.New("subtask not found")
	}
	if !subtask.Linked() {
		return nil, errors.New("subtask has no remote mirror yet, sync first")
	}

	recipient, err := s.users.FindByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, errors.New("recipient is not registered")
	}
	if recipient.ID == owner {
		return nil, errors.New("cannot share a subtask with yourself")
	}

	invitation := &models.SubTaskInvitation{
		Owner:       owner,
		RecipientID: recipient.ID,
		SubtaskID:   subtaskID,
	}
	if err := s.invitations.Store(ctx, invitation); err != nil {
		return nil, err
	}

	sender, err := s.users.FindByID(ctx, owner)
	if err != nil || sender == nil {
		log.Printf("[share][invite][err] load sender %d: %v", owner, err)
		return invitation, nil
	}

	// Notifications are best effort; the invitation stands either way.
	if err := s.email.SendInvitation(recipient.Email, sender.Username, subtask.Name); err != nil {
		log.Printf("[share][invite][warn] email to %s: %v", recipient.Email, err)
	}
	if recipient.TelegramChatID != 0 {
		if err := s.telegram.NotifyInvitation(recipient.TelegramChatID, sender.Username, subtask.Name); err != nil {
			log.Printf("[share][invite][warn] telegram chat=%d: %v", recipient.TelegramChatID, err)
		}
	}
	return invitation, nil
}

func (s *shareService) Respond(ctx context.Context, recipientID, invitationID int64, accept bool) error {
	invitation, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation == nil || invitation.RecipientID != recipientID {
		return errors.New("invitation not found")
	}
	if !accept {
		return s.invitations.Delete(ctx, invitationID)
	}

	subtask, err := s.subtasks.FindByID(ctx, invitation.SubtaskID)
	if err != nil {
		return err
	}
	if subtask == nil {
		// The subtask vanished while the invitation sat; clean up quietly.
		return s.invitations.Delete(ctx, invitationID)
	}
	if !subtask.Linked() {
		return errors.New("subtask has no remote mirror yet")
	}

	token, err := s.creds.DecryptTodoistKey(recipientID)
	if err != nil {
		return err
	}
	mirrorID, err := s.todoist.CreateTask(ctx, token, subtask.Name, subtask.Description, subtask.DueDate, "")
	if err != nil {
		return translateRemoteErr(err)
	}
	if subtask.Status == models.StatusCompleted {
		if err := s.todoist.SetOpen(ctx, token, mirrorID, false); err != nil {
			log.Printf("[share][respond][warn] close new mirror %s: %v", mirrorID, err)
		}
	}

	link := &models.SharedSubtaskLink{
		Owner:           recipientID,
		SubtaskID:       subtask.ID,
		TodoistOriginal: *subtask.TodoistID,
		TodoistID:       mirrorID,
	}
	if err := s.shared.Store(ctx, link); err != nil {
		return err
	}

	sharedWith := append([]int64{}, subtask.SharedWith...)
	if !containsID(sharedWith, recipientID) {
		sharedWith = append(sharedWith, recipientID)
	}
	if err := s.subtasks.SetSharedWith(ctx, subtask.ID, sharedWith); err != nil {
		return err
	}
	log.Printf("[share][respond][ok] subtask=%d recipient=%d mirror=%s", subtask.ID, recipientID, mirrorID)
	return s.invitations.Delete(ctx, invitationID)
}

func (s *shareService) ListInvitations(ctx context.Context, recipientID int64) ([]models.SubTaskInvitation, error) {
	return s.invitations.ListByRecipient(ctx, recipientID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
