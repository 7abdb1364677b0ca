package tests

import (
	"errors"
	"strings"
	"testing"

	"school_platform/school/schema"
)

func TestHomeworkFeedFiltersByClass(t *testing.T) {
	env := setupTestEnv(t)

	cubsTeacher, err := env.newTeacher("cubs_teacher", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	bearsTeacher, err := env.newTeacher("bears_teacher", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cubsTeacher.createHomework("Count to ten", "", dueDate()); err != nil {
		t.Fatal(err)
	}
	if _, err := cubsTeacher.createHomework("Draw a tree", "", dueDate()); err != nil {
		t.Fatal(err)
	}
	if _, err := bearsTeacher.createHomework("Read a story", "", dueDate()); err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	feed, err := parent.feed(childId)
	if err != nil {
		t.Fatal(err)
	}

	if len(feed.Homeworks) != 2 {
		t.Fatalf("expected 2 homeworks in feed, got %d", len(feed.Homeworks))
	}
	for _, item := range feed.Homeworks {
		if item.ClassName != "Curious Cubs" {
			t.Fatalf("feed leaked homework from class %v", item.ClassName)
		}
		if item.Submitted || item.Completed {
			t.Fatalf("fresh homework should be unsubmitted, got %+v", item)
		}
	}
	if !feed.FilteredByChild || len(feed.Children) != 1 || feed.Children[0].Name != "Panda" {
		t.Fatalf("invalid feed child context %+v", feed)
	}
}

func TestFeedRequiresOwnedChild(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.newTeacher("teach", "Curious Cubs"); err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newParent("xyz")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.feed(childId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("feed for another parent's child should 404: %v", err)
	}

	if _, err := parent.feed(""); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("feed without child_id should be a bad request: %v", err)
	}
	if _, err := parent.feed("undefined"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("feed with child_id=undefined should be a bad request: %v", err)
	}
}

func TestSubmitHomework(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	err = parent.submit(map[string]interface{}{
		"homework_id": homeworkId,
		"child_id":    childId,
		"file_url":    "https://uploads.example.com/panda-v1.pdf",
		"comment":     "first try",
	})
	if err != nil {
		t.Fatal(err)
	}

	feed, err := parent.feed(childId)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Homeworks) != 1 {
		t.Fatalf("expected 1 homework, got %d", len(feed.Homeworks))
	}
	item := feed.Homeworks[0]
	if !item.Submitted || item.FileUrl != "https://uploads.example.com/panda-v1.pdf" || item.Comment != "first try" {
		t.Fatalf("invalid feed item after submit %+v", item)
	}
	if item.SubmittedAt == nil {
		t.Fatal("submitted_at should be set")
	}
}

func TestResubmissionOverwrites(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	for _, version := range []string{"v1", "v2", "v3"} {
		err = parent.submit(map[string]interface{}{
			"homework_id":       homeworkId,
			"child_id":          childId,
			"file_url":          "https://uploads.example.com/panda-" + version + ".pdf",
			"completion_answer": "answer " + version,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var submissionCount, completionCount int64
	if err := env.db.Model(&schema.Submission{}).Where("homework_id = ?", homeworkId).Count(&submissionCount).Error; err != nil {
		t.Fatal(err)
	}
	if err := env.db.Model(&schema.HomeworkCompletion{}).Where("homework_id = ?", homeworkId).Count(&completionCount).Error; err != nil {
		t.Fatal(err)
	}
	if submissionCount != 1 || completionCount != 1 {
		t.Fatalf("repeat submissions must not duplicate rows, got %d submissions and %d completions", submissionCount, completionCount)
	}

	feed, err := parent.feed(childId)
	if err != nil {
		t.Fatal(err)
	}
	item := feed.Homeworks[0]
	if item.FileUrl != "https://uploads.example.com/panda-v3.pdf" || item.CompletionAnswer != "answer v3" {
		t.Fatalf("feed should reflect the latest submission, got %+v", item)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	_, bearChildId, err := env.newFamily("xyz", "Bear", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	err = parent.submit(map[string]interface{}{
		"homework_id": "0a5adf80-31b8-4592-9181-fd1e812cf9b0",
		"child_id":    childId,
		"file_url":    "https://uploads.example.com/panda.pdf",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("submit for missing homework should 404: %v", err)
	}

	// Submitting on behalf of a child the caller does not own.
	err = parent.submit(map[string]interface{}{
		"homework_id": homeworkId,
		"child_id":    bearChildId,
		"file_url":    "https://uploads.example.com/panda.pdf",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("submit for another parent's child should 404: %v", err)
	}

	// Submitting with neither a file nor an answer.
	err = parent.submit(map[string]interface{}{
		"homework_id": homeworkId,
		"child_id":    childId,
	})
	if err == nil {
		t.Fatal("submit with no content should be rejected")
	}

	var count int64
	if err := env.db.Model(&schema.Submission{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rejected submissions must not persist rows, got %d", count)
	}
}

func TestSubmitClassMismatch(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, bearChildId, err := env.newFamily("abc", "Bear", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	err = parent.submit(map[string]interface{}{
		"homework_id": homeworkId,
		"child_id":    bearChildId,
		"file_url":    "https://uploads.example.com/bear.pdf",
	})
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("submit for a child outside the homework's class should 422: %v", err)
	}
}

func TestInteractiveHomework(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	items := map[string]interface{}{
		"questions": []map[string]interface{}{
			{"prompt": "2 + 2", "choices": []int{3, 4, 5}},
		},
	}
	homeworkId, err := teacher.createInteractiveHomework("Math drill", dueDate(), items)
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	// Interactive homework requires a structured result or an answer.
	err = parent.submit(map[string]interface{}{
		"homework_id": homeworkId,
		"child_id":    childId,
		"file_url":    "https://uploads.example.com/panda.pdf",
	})
	if err == nil {
		t.Fatal("interactive homework should reject file-only submissions")
	}

	err = parent.submit(map[string]interface{}{
		"homework_id":     homeworkId,
		"child_id":        childId,
		"activity_result": map[string]interface{}{"score": 10, "answers": []int{4}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var completion schema.HomeworkCompletion
	if err := env.db.First(&completion, "homework_id = ?", homeworkId).Error; err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(completion.CompletionAnswer, "Interactive Activity Result: ") {
		t.Fatalf("activity result should be stored with its marker prefix, got %q", completion.CompletionAnswer)
	}

	feed, err := parent.feed(childId)
	if err != nil {
		t.Fatal(err)
	}
	if !feed.Homeworks[0].Interactive || !feed.Homeworks[0].Completed {
		t.Fatalf("invalid interactive feed item %+v", feed.Homeworks[0])
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	for _, answer := range []string{"one", "two", "three"} {
		err = parent.complete(homeworkId, map[string]interface{}{
			"child_id":          childId,
			"completion_answer": answer,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var completions []schema.HomeworkCompletion
	if err := env.db.Where("homework_id = ?", homeworkId).Find(&completions).Error; err != nil {
		t.Fatal(err)
	}
	if len(completions) != 1 || completions[0].CompletionAnswer != "three" {
		t.Fatalf("expected a single completion holding the latest answer, got %+v", completions)
	}
}

func TestSubmissionRollup(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	otherTeacher, err := env.newTeacher("other", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	families := []struct {
		parent string
		child  string
	}{
		{"fam1", "Panda"}, {"fam2", "Tiger"}, {"fam3", "Rabbit"},
	}
	for i, fam := range families {
		parent, childId, err := env.newFamily(fam.parent, fam.child, "Curious Cubs")
		if err != nil {
			t.Fatal(err)
		}

		// The third family never submits.
		if i == 2 {
			continue
		}

		err = parent.submit(map[string]interface{}{
			"homework_id":       homeworkId,
			"child_id":          childId,
			"file_url":          "https://uploads.example.com/" + fam.child + ".pdf",
			"completion_answer": fam.child + " did it",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	rollup, err := teacher.submissions(homeworkId)
	if err != nil {
		t.Fatal(err)
	}

	if rollup.TotalStudents != 3 || rollup.SubmittedCount != 2 || rollup.PendingCount != 1 {
		t.Fatalf("invalid rollup counts %+v", rollup)
	}
	for _, sub := range rollup.Submissions {
		if sub.ChildName == "" || sub.ParentName == "" {
			t.Fatalf("rollup should carry child and parent names, got %+v", sub)
		}
		if sub.CompletionAnswer != sub.ChildName+" did it" {
			t.Fatalf("rollup should merge the completion answer, got %+v", sub)
		}
	}

	// A teacher from another class cannot read the rollup.
	if _, err := otherTeacher.submissions(homeworkId); !errors.Is(err, ErrForbidden) {
		t.Fatalf("rollup for another teacher's homework should 403: %v", err)
	}

	all, err := teacher.allSubmissions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].HomeworkId.String() != homeworkId {
		t.Fatalf("invalid rollup list %+v", all)
	}
}

func TestHomeworkNotificationFanout(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	cubsParent, _, err := env.newFamily("cubs_fam", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	bearsParent, _, err := env.newFamily("bears_fam", "Bear", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	if err := env.registerDevice(&cubsParent, "device-token-1"); err != nil {
		t.Fatal(err)
	}

	// Push delivery failing must not affect homework creation or the stored
	// notification rows.
	env.push.FailAll()

	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	notes, err := cubsParent.notifications()
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification for class parent, got %d", len(notes))
	}
	if notes[0].HomeworkId == nil || notes[0].HomeworkId.String() != homeworkId || notes[0].Read {
		t.Fatalf("invalid notification %+v", notes[0])
	}

	bearNotes, err := bearsParent.notifications()
	if err != nil {
		t.Fatal(err)
	}
	if len(bearNotes) != 0 {
		t.Fatalf("parents outside the class should not be notified, got %+v", bearNotes)
	}

	calls := env.push.Calls()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0] != "device-token-1" {
		t.Fatalf("expected one multicast to the registered device, got %+v", calls)
	}
}

func TestDeleteHomeworkRemovesDependents(t *testing.T) {
	env := setupTestEnv(t)

	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	otherTeacher, err := env.newTeacher("other", "Brave Bears")
	if err != nil {
		t.Fatal(err)
	}

	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	parent, childId, err := env.newFamily("abc", "Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}
	err = parent.submit(map[string]interface{}{
		"homework_id":       homeworkId,
		"child_id":          childId,
		"file_url":          "https://uploads.example.com/panda.pdf",
		"completion_answer": "done",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := otherTeacher.deleteHomework(homeworkId); !errors.Is(err, ErrForbidden) {
		t.Fatalf("deleting another teacher's homework should 403: %v", err)
	}

	if err := teacher.deleteHomework(homeworkId); err != nil {
		t.Fatal(err)
	}

	var submissions, completions int64
	if err := env.db.Model(&schema.Submission{}).Where("homework_id = ?", homeworkId).Count(&submissions).Error; err != nil {
		t.Fatal(err)
	}
	if err := env.db.Model(&schema.HomeworkCompletion{}).Where("homework_id = ?", homeworkId).Count(&completions).Error; err != nil {
		t.Fatal(err)
	}
	if submissions != 0 || completions != 0 {
		t.Fatalf("homework dependents should be deleted, got %d submissions and %d completions", submissions, completions)
	}
}
