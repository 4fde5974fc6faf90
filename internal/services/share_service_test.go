package services

import (
	"context"
	"errors"
	"testing"

	"eagletask/internal/models"
)

func newTestShareSetup() (*fakeSubTaskRepo, *fakeSharedRepo, *fakeInvitationRepo, *fakeUserRepo, *fakeCreds, *fakeTodoist, *fakeEmail, *fakeTelegram, ShareService) {
	subtasks := newFakeSubTaskRepo()
	shared := newFakeSharedRepo()
	invitations := newFakeInvitationRepo()
	users := newFakeUserRepo()
	creds := newFakeCreds(1, 2)
	td := newFakeTodoist()
	email := &fakeEmail{}
	tg := &fakeTelegram{}
	svc := NewShareService(subtasks, shared, invitations, users, creds, td, email, tg)
	return subtasks, shared, invitations, users, creds, td, email, tg, svc
}

func sharedSubtaskFixture(subtasks *fakeSubTaskRepo, shared *fakeSharedRepo) *models.SubTask {
	st := &models.SubTask{
		ID: 1, Owner: 1, TaskID: 1, TodoistID: strptr("owner-mirror"),
		Name: "Bibliography", Status: models.StatusIncomplete, SharedWith: []int64{2},
	}
	subtasks.subtasks = append(subtasks.subtasks, st)
	subtasks.nextID = 2
	shared.links = append(shared.links, &models.SharedSubtaskLink{
		ID: 1, Owner: 2, SubtaskID: 1, TodoistOriginal: "owner-mirror", TodoistID: "participant-mirror",
	})
	shared.nextID = 2
	return st
}

func TestToggleSharedAllMirrorsSucceed(t *testing.T) {
	subtasks, shared, _, _, _, td, _, _, svc := newTestShareSetup()
	st := sharedSubtaskFixture(subtasks, shared)
	td.open["owner-mirror"] = struct{}{}
	td.open["participant-mirror"] = struct{}{}

	toggled, err := svc.ToggleShared(context.Background(), st)
	if err != nil {
		t.Fatalf("ToggleShared: %v", err)
	}
	if toggled.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", toggled.Status)
	}
	if len(td.setOpenCalls) != 2 {
		t.Fatalf("expected 2 mirror updates, got %d", len(td.setOpenCalls))
	}
	for _, call := range td.setOpenCalls {
		if call.open {
			t.Fatalf("mirrors should be closed, got open for %s", call.id)
		}
	}
}

func TestToggleSharedPartialSuccessKeepsFlip(t *testing.T) {
	subtasks, shared, _, _, _, td, _, _, svc := newTestShareSetup()
	st := sharedSubtaskFixture(subtasks, shared)
	td.failSetOpen["participant-mirror"] = errors.New("boom")

	toggled, err := svc.ToggleShared(context.Background(), st)
	if err != nil {
		t.Fatalf("ToggleShared with one failing mirror: %v", err)
	}
	if toggled.Status != models.StatusCompleted {
		t.Fatalf("flip should stick with one successful mirror, got %s", toggled.Status)
	}
	if subtasks.subtasks[0].Status != models.StatusCompleted {
		t.Fatalf("stored status should be completed, got %s", subtasks.subtasks[0].Status)
	}
}

func TestToggleSharedAllFailReverts(t *testing.T) {
	subtasks, shared, _, _, _, td, _, _, svc := newTestShareSetup()
	st := sharedSubtaskFixture(subtasks, shared)
	td.failSetOpen["owner-mirror"] = errors.New("boom")
	td.failSetOpen["participant-mirror"] = errors.New("boom")

	_, err := svc.ToggleShared(context.Background(), st)
	if err == nil {
		t.Fatal("expected error when no mirror accepts the toggle")
	}
	if subtasks.subtasks[0].Status != models.StatusIncomplete {
		t.Fatalf("status should be reverted to incomplete, got %s", subtasks.subtasks[0].Status)
	}
}

func TestToggleSharedMissingParticipantSession(t *testing.T) {
	subtasks, shared, _, _, creds, td, _, _, svc := newTestShareSetup()
	st := sharedSubtaskFixture(subtasks, shared)
	// Participant 2 has no live session; their mirror fails, the owner's
	// succeeds, so the toggle still sticks.
	delete(creds.todoistKeys, 2)

	toggled, err := svc.ToggleShared(context.Background(), st)
	if err != nil {
		t.Fatalf("ToggleShared: %v", err)
	}
	if toggled.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", toggled.Status)
	}
	if len(td.setOpenCalls) != 1 || td.setOpenCalls[0].id != "owner-mirror" {
		t.Fatalf("only the owner mirror should be updated, got %+v", td.setOpenCalls)
	}
}

func TestPropagateReportsFailedMirrors(t *testing.T) {
	subtasks, shared, _, _, _, td, _, _, svc := newTestShareSetup()
	st := sharedSubtaskFixture(subtasks, shared)
	td.failSetOpen["participant-mirror"] = errors.New("boom")

	err := svc.Propagate(context.Background(), st)
	var perr *PropagationError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PropagationError, got %v", err)
	}
	if len(perr.Failed) != 1 || perr.Failed[0] != "participant-mirror" {
		t.Fatalf("unexpected failed mirrors: %v", perr.Failed)
	}
}

func TestInviteStoresAndNotifies(t *testing.T) {
	subtasks, shared, invitations, users, _, _, email, tg, svc := newTestShareSetup()
	sharedSubtaskFixture(subtasks, shared)
	users.users = append(users.users,
		&models.User{ID: 1, Username: "alice", Email: "alice@example.com"},
		&models.User{ID: 2, Username: "bob", Email: "bob@example.com", TelegramChatID: 777},
	)
	users.nextID = 3

	inv, err := svc.Invite(context.Background(), 1, "bob@example.com", 1)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.RecipientID != 2 || inv.SubtaskID != 1 {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
	if len(invitations.invitations) != 1 {
		t.Fatalf("invitation not stored")
	}
	if len(email.invitations) != 1 || email.invitations[0] != "bob@example.com" {
		t.Fatalf("email notice missing: %v", email.invitations)
	}
	if len(tg.notified) != 1 || tg.notified[0] != 777 {
		t.Fatalf("telegram notice missing: %v", tg.notified)
	}
}

func TestInviteRejectsSelfAndUnknownRecipient(t *testing.T) {
	subtasks, shared, _, users, _, _, _, _, svc := newTestShareSetup()
	sharedSubtaskFixture(subtasks, shared)
	users.users = append(users.users, &models.User{ID: 1, Username: "alice", Email: "alice@example.com"})
	users.nextID = 2

	if _, err := svc.Invite(context.Background(), 1, "alice@example.com", 1); err == nil {
		t.Fatal("self-invite should fail")
	}
	if _, err := svc.Invite(context.Background(), 1, "nobody@example.com", 1); err == nil {
		t.Fatal("invite to unknown recipient should fail")
	}
}

func TestRespondAcceptJoinsFanOut(t *testing.T) {
	subtasks, shared, invitations, users, _, td, _, _, svc := newTestShareSetup()
	st := &models.SubTask{
		ID: 1, Owner: 1, TaskID: 1, TodoistID: strptr("owner-mirror"),
		Name: "Bibliography", Status: models.StatusIncomplete,
	}
	subtasks.subtasks = append(subtasks.subtasks, st)
	subtasks.nextID = 2
	users.users = append(users.users,
		&models.User{ID: 1, Email: "alice@example.com"},
		&models.User{ID: 2, Email: "bob@example.com"},
	)
	users.nextID = 3
	invitations.invitations = append(invitations.invitations,
		&models.SubTaskInvitation{ID: 5, Owner: 1, RecipientID: 2, SubtaskID: 1})
	invitations.nextID = 6

	if err := svc.Respond(context.Background(), 2, 5, true); err != nil {
		t.Fatalf("Respond accept: %v", err)
	}

	if len(shared.links) != 1 {
		t.Fatalf("participant link not stored")
	}
	link := shared.links[0]
	if link.Owner != 2 || link.TodoistOriginal != "owner-mirror" || link.TodoistID == "" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if len(st.SharedWith) != 1 || st.SharedWith[0] != 2 {
		t.Fatalf("shared_with not updated: %v", st.SharedWith)
	}
	if len(invitations.invitations) != 0 {
		t.Fatalf("invitation should be deleted after accept")
	}
	if len(td.created) != 1 {
		t.Fatalf("recipient mirror not created: %v", td.created)
	}
}

func TestRespondAcceptClosesMirrorWhenCompleted(t *testing.T) {
	subtasks, _, invitations, users, _, td, _, _, svc := newTestShareSetup()
	st := &models.SubTask{
		ID: 1, Owner: 1, TaskID: 1, TodoistID: strptr("owner-mirror"),
		Name: "Bibliography", Status: models.StatusCompleted,
	}
	subtasks.subtasks = append(subtasks.subtasks, st)
	subtasks.nextID = 2
	users.users = append(users.users, &models.User{ID: 2, Email: "bob@example.com"})
	users.nextID = 3
	invitations.invitations = append(invitations.invitations,
		&models.SubTaskInvitation{ID: 5, Owner: 1, RecipientID: 2, SubtaskID: 1})
	invitations.nextID = 6

	if err := svc.Respond(context.Background(), 2, 5, true); err != nil {
		t.Fatalf("Respond accept: %v", err)
	}

	// The fresh mirror must match the authoritative completed status.
	closed := false
	for _, call := range td.setOpenCalls {
		if !call.open {
			closed = true
		}
	}
	if !closed {
		t.Fatal("new mirror of a completed subtask should be closed")
	}
}

func TestRespondDeclineRemovesInvitation(t *testing.T) {
	subtasks, shared, invitations, _, _, td, _, _, svc := newTestShareSetup()
	sharedSubtaskFixture(subtasks, shared)
	invitations.invitations = append(invitations.invitations,
		&models.SubTaskInvitation{ID: 5, Owner: 1, RecipientID: 3, SubtaskID: 1})
	invitations.nextID = 6

	if err := svc.Respond(context.Background(), 3, 5, false); err != nil {
		t.Fatalf("Respond decline: %v", err)
	}
	if len(invitations.invitations) != 0 {
		t.Fatal("invitation should be deleted after decline")
	}
	if len(td.created) != 0 {
		t.Fatal("decline must not create a mirror")
	}
}

func TestRespondWrongRecipient(t *testing.T) {
	subtasks, shared, invitations, _, _, _, _, _, svc := newTestShareSetup()
	sharedSubtaskFixture(subtasks, shared)
	invitations.invitations = append(invitations.invitations,
		&models.SubTaskInvitation{ID: 5, Owner: 1, RecipientID: 2, SubtaskID: 1})
	invitations.nextID = 6

	if err := svc.Respond(context.Background(), 99, 5, true); err == nil {
		t.Fatal("responding to someone else's invitation should fail")
	}
}
