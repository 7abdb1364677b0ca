package tests

import (
	"errors"
	"fmt"
	"school_platform/school/schema"
	"testing"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.signup(name, email, password)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.signup(name, email, password)
		if err == nil {
			t.Fatal("duplicate signup should fail")
		}

		err = client.login(loginInfo{Email: "missing@mail.com", Password: password})
		if !errors.Is(err, ErrNotFound) {
			t.Fatal("login should fail with wrong email")
		}

		err = client.login(loginInfo{Email: email, Password: "wrong_password"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatal("login should fail with wrong password")
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		info, err := client.userInfo()
		if err != nil {
			t.Fatal(err)
		}

		if info.Name != name || info.Email != email || info.Id.String() != client.userId || info.Role != schema.RoleParent {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestSignupAlwaysCreatesParent(t *testing.T) {
	env := setupTestEnv(t)

	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}

	info, err := parent.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != schema.RoleParent {
		t.Fatalf("self registered users must be parents, got %v", info.Role)
	}

	// Parents cannot reach the teacher or admin surfaces.
	_, err = parent.listHomeworks()
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("parent should not be able to list homeworks: %v", err)
	}
	_, err = parent.listUsers()
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("parent should not be able to list users: %v", err)
	}
}

func TestAddUser(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}

	client := env.newClient()

	_, err = parent.addUser("xyz", "xyz@mail.com", "xyz_password", schema.RoleTeacher, "Curious Cubs", "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("non admins cannot add users")
	}

	err = client.login(loginInfo{Email: "xyz@mail.com", Password: "xyz_password"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("no login should be created: %v", err)
	}

	_, err = admin.addUser("xyz", "xyz@mail.com", "xyz_password", schema.RoleTeacher, "", "")
	if err == nil {
		t.Fatal("teacher without a class should be rejected")
	}

	login, err := admin.addUser("xyz", "xyz@mail.com", "xyz_password", schema.RoleTeacher, "Curious Cubs", "")
	if err != nil {
		t.Fatal(err)
	}

	err = client.login(login)
	if err != nil {
		t.Fatal("new user should be created")
	}

	info, err := client.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != schema.RoleTeacher || info.ClassName != "Curious Cubs" {
		t.Fatalf("invalid teacher info %v", info)
	}

	if len(env.email.Sent()) != 1 {
		t.Fatalf("expected 1 welcome email, got %d", len(env.email.Sent()))
	}
}

func TestPromoteDemoteAdmin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}

	if err := parent.promoteAdmin(parent.userId); !errors.Is(err, ErrForbidden) {
		t.Fatal("non admins cannot promote")
	}

	if err := admin.promoteAdmin(parent.userId); err != nil {
		t.Fatal(err)
	}

	info, err := parent.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != schema.RoleAdmin {
		t.Fatalf("expected promoted user to be admin, got %v", info.Role)
	}

	if err := admin.demoteAdmin(parent.userId); err != nil {
		t.Fatal(err)
	}

	info, err = parent.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != schema.RoleParent {
		t.Fatalf("demoted user without a class should be a parent, got %v", info.Role)
	}

	// The initial admin is the only admin left, demoting it must fail.
	if err := admin.demoteAdmin(admin.userId); err == nil {
		t.Fatal("cannot demote the last admin")
	}
}

func TestDeleteUserReassignsHomeworks(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	teacher, err := env.newTeacher("teach", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	homeworkId, err := teacher.createHomework("Count to ten", "", dueDate())
	if err != nil {
		t.Fatal(err)
	}

	teacherInfo, err := teacher.userInfo()
	if err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteUser(teacherInfo.Id.String()); err != nil {
		t.Fatal(err)
	}

	var homework schema.Homework
	if err := env.db.First(&homework, "id = ?", homeworkId).Error; err != nil {
		t.Fatal(err)
	}
	if homework.TeacherId.String() != admin.userId {
		t.Fatalf("deleted teacher's homework should be reassigned to an admin, got %v", homework.TeacherId)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range users {
		if u.Id == teacherInfo.Id {
			t.Fatal("deleted user should not be listed")
		}
	}
}

func TestChildManagement(t *testing.T) {
	env := setupTestEnv(t)

	parent, err := env.newParent("abc")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newParent("xyz")
	if err != nil {
		t.Fatal(err)
	}

	childId, err := parent.addChild("Panda", "Curious Cubs")
	if err != nil {
		t.Fatal(err)
	}

	children, err := parent.listChildren()
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].Name != "Panda" || children[0].ClassName != "Curious Cubs" {
		t.Fatalf("invalid children %v", children)
	}

	// Another parent cannot see or delete the child.
	otherChildren, err := other.listChildren()
	if err != nil {
		t.Fatal(err)
	}
	if len(otherChildren) != 0 {
		t.Fatalf("other parent should have no children, got %v", otherChildren)
	}
	if err := other.deleteChild(childId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other parent should not be able to delete the child: %v", err)
	}

	if err := parent.deleteChild(childId); err != nil {
		t.Fatal(err)
	}

	children, err = parent.listChildren()
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 0 {
		t.Fatalf("expected no children after delete, got %v", children)
	}
}
