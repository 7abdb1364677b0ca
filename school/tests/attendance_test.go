package tests

import (
	"errors"
	"testing"

	"school_platform/school/schema"

	"github.com/google/uuid"
)

func TestRecordAttendance(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	if err := teacher.recordAttendance(childId, "2026-03-02", "present", false); err != nil {
		t.Fatal(err)
	}

	// Re-recording the same day overwrites instead of duplicating.
	if err := teacher.recordAttendance(childId, "2026-03-02", "absent", false); err != nil {
		t.Fatal(err)
	}
	if err := teacher.recordAttendance(childId, "2026-03-03", "present", true); err != nil {
		t.Fatal(err)
	}

	var count int64
	if err := env.db.Model(&schema.Attendance{}).Where("child_id = ?", childId).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attendance rows, got %d", count)
	}

	history, err := parent.childAttendance(childId)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Date != "2026-03-03" || history[0].Status != "present" || !history[0].Late {
		t.Fatalf("invalid latest history entry %+v", history[0])
	}
	if history[1].Date != "2026-03-02" || history[1].Status != "absent" {
		t.Fatalf("overwrite should keep the latest status, got %+v", history[1])
	}
}

func TestAttendanceClassBoundary(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	parent, bearChildId, err := env.newFamily("abc", "Bear", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	err = teacher.recordAttendance(bearChildId, "2026-03-02", "present", false)
	if err == nil {
		t.Fatal("teacher should not record attendance for a child outside their class")
	}

	if err := parent.recordAttendance(bearChildId, "2026-03-02", "present", false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("parents cannot record attendance: %v", err)
	}

	err = teacher.recordAttendance(uuid.NewString(), "2026-03-02", "present", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown child should be a not-found error: %v", err)
	}
}

func TestBulkAttendanceIsAtomic(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	_, cubChildId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	_, bearChildId, err := env.newFamily("xyz", "Bear", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	err = teacher.recordBulkAttendance("2026-03-02", []map[string]interface{}{
		{"child_id": cubChildId, "status": "present"},
		{"child_id": bearChildId, "status": "present"},
	})
	if err == nil {
		t.Fatal("bulk recording should fail on out-of-class children")
	}

	var count int64
	if err := env.db.Model(&schema.Attendance{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("failed bulk recording must not persist partial rows, got %d", count)
	}

	err = teacher.recordBulkAttendance("2026-03-02", []map[string]interface{}{
		{"child_id": cubChildId, "status": "present", "late": true},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClassAttendanceRoster(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	_, pandaId, err := env.newFamily("fam1", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.newFamily("fam2", "Tiger", "Curious Cubs"); err != nil {
		t.Fatal(err)
	}

	if err := teacher.recordAttendance(pandaId, "2026-03-02", "present", false); err != nil {
		t.Fatal(err)
	}

	records, err := teacher.classAttendance("2026-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("roster should list every child in the class, got %d", len(records))
	}

	byName := map[string]bool{}
	for _, record := range records {
		byName[record.ChildName] = record.Recorded
	}
	if !byName["Panda"] || byName["Tiger"] {
		t.Fatalf("invalid recorded flags %+v", records)
	}

	if _, err := teacher.classAttendance("03/02/2026"); err == nil {
		t.Fatal("malformed dates should be rejected")
	}
}
