package tests

import (
	"bytes"
	"school_platform/school/auth"
	"school_platform/school/schema"
	"school_platform/school/services"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	platform services.SchoolPlatform
	api      chi.Router
	db       *gorm.DB
	push     *PushStub
	email    *EmailStub
}

const (
	adminName     = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Child{}, &schema.Homework{}, &schema.Submission{},
		&schema.HomeworkCompletion{}, &schema.Attendance{}, &schema.Message{},
		&schema.Notification{}, &schema.Event{}, &schema.DeviceToken{},
	)
	if err != nil {
		t.Fatal(err)
	}

	pushStub := &PushStub{}
	emailStub := &EmailStub{}

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:        []byte("290zcv02ai249"),
			AdminName:     adminName,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	platform := services.NewSchoolPlatform(db, pushStub, emailStub, userAuth)

	return &testEnv{
		platform: platform,
		api:      platform.Routes(),
		db:       db,
		push:     pushStub,
		email:    emailStub,
	}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}

// newParent signs up and logs in a parent account.
func (t *testEnv) newParent(name string) (client, error) {
	c := t.newClient()
	login, err := c.signup(name, name+"@mail.com", name+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

// newTeacher creates a teacher account through the admin api and logs it in.
func (t *testEnv) newTeacher(name, className string) (client, error) {
	admin, err := t.adminClient()
	if err != nil {
		return client{}, err
	}

	login, err := admin.addUser(name, name+"@mail.com", name+"_password", schema.RoleTeacher, className, "")
	if err != nil {
		return client{}, err
	}

	c := t.newClient()
	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

// newFamily creates a parent with a single child in the given class.
func (t *testEnv) newFamily(name, childName, className string) (client, string, error) {
	parent, err := t.newParent(name)
	if err != nil {
		return client{}, "", err
	}

	childId, err := parent.addChild(childName, className)
	if err != nil {
		return client{}, "", err
	}

	return parent, childId, nil
}

func (t *testEnv) registerDevice(c *client, token string) error {
	return c.Post("/fcm/register").Json(map[string]string{"token": token, "platform": "android"}).Do(nil)
}

func dueDate() time.Time {
	return time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)
}
