package tests

import (
	"errors"
	"testing"
)

func TestSendAndReadMessages(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	teacherInfo, err := teacher.userInfo()
	if err != nil {
		t.Fatal(err)
	}

	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}

	messageId, err := parent.sendMessage(teacherInfo.Id.String(), "Question", "Is the field trip still on?")
	if err != nil {
		t.Fatal(err)
	}

	inbox, err := teacher.inbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 inbox message, got %d", len(inbox))
	}
	msg := inbox[0]
	if msg.Subject != "Question" || msg.SenderName != "abc" || msg.Read {
		t.Fatalf("invalid inbox message %+v", msg)
	}

	sent, err := parent.sent()
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0].RecipientName != "teach" {
		t.Fatalf("invalid sent listing %+v", sent)
	}

	// The sender cannot mark the message read, only the recipient can.
	if err := parent.markRead(messageId); !errors.Is(err, ErrForbidden) {
		t.Fatalf("sender should not mark the message read: %v", err)
	}

	if err := teacher.markRead(messageId); err != nil {
		t.Fatal(err)
	}

	inbox, err = teacher.inbox()
	if err != nil {
		t.Fatal(err)
	}
	if !inbox[0].Read {
		t.Fatal("message should be marked read")
	}
}

func TestMessageValidation(t *testing.T) {
	env := setupTestEnv(t)

	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}

	// Recipient must be a real user.
	_, err = parent.sendMessage("0a5adf80-31b8-4592-9181-fd1e812cf9b0", "Hi", "Hello")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("message to missing recipient should 404: %v", err)
	}

	_, err = parent.sendMessage(parent.userId, "Hi", "Hello me")
	if err == nil {
		t.Fatal("self-addressed messages should be rejected")
	}

	other, err := env.newParent("xyz")
	if err != nil {
		t.Fatal(err)
	}
	_, err = parent.sendMessage(other.userId, "Hi", "")
	if err == nil {
		t.Fatal("messages require a body")
	}
}

func TestNotificationListing(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	parent, _, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newParent("xyz")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := teacher.createHomework("Count to ten", "", dueDate()); err != nil {
		t.Fatal(err)
	}
	if _, err := teacher.createHomework("Draw a tree", "", dueDate()); err != nil {
		t.Fatal(err)
	}

	notes, err := parent.notifications()
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notes))
	}

	if err := parent.markNotificationRead(notes[0].Id.String()); err != nil {
		t.Fatal(err)
	}

	// Users cannot mark each other's notifications.
	if err := other.markNotificationRead(notes[1].Id.String()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("marking another user's notification should 404: %v", err)
	}

	var unread []struct{ Read bool }
	err = parent.Get("/message/notifications?unread=true").Do(&unread)
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(unread))
	}
}
